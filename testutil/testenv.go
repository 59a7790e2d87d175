// Package testutil builds the fixtures integration tests drive the
// consensus core through: a temporary Badger-backed storage.Engine, a
// module registry running one testmodule.Module instance, and a wired
// consensus.Processor.
package testutil

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/rechain/fedicore/internal/consensus"
	"github.com/rechain/fedicore/internal/modules"
	"github.com/rechain/fedicore/internal/signing"
	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/internal/testmodule"
	"github.com/rechain/fedicore/pkg/config"
	"github.com/rechain/fedicore/pkg/types"
)

// LedgerInstance is the module instance id TestEnvironment's single
// testmodule.Module is registered under.
const LedgerInstance types.ModuleInstanceId = 0x10

// TestEnvironment wires one guardian's storage engine, module registry,
// and processor for a test to drive directly.
type TestEnvironment struct {
	T         *testing.T
	TempDir   string
	Config    *config.Config
	Engine    *storage.Engine
	Registry  *modules.Registry
	Processor *consensus.Processor
}

// NewTestEnvironment builds a fresh TestEnvironment over a temporary
// directory, registered with one testmodule.Module ledger instance and
// no threshold signer (signer-dependent scenarios use
// NewTestEnvironmentWithFederation instead).
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	return newTestEnvironment(t, nil, nil, 1)
}

// NewTestEnvironmentWithFederation builds a TestEnvironment whose
// processor signs EpochInfo shares as peer with a freshly generated key
// and verifies EpochInfo shares against verifierKeys, requiring
// threshold valid shares.
func NewTestEnvironmentWithFederation(t *testing.T, peer types.PeerId, verifierKeys map[types.PeerId]ed25519.PublicKey, threshold int) *TestEnvironment {
	t.Helper()
	signer, err := signing.NewEpochSigner(peer)
	if err != nil {
		t.Fatalf("testutil: generate epoch signer: %v", err)
	}
	verifier := signing.NewThresholdVerifier(verifierKeys, threshold)
	return newTestEnvironment(t, signer, verifier, threshold)
}

func newTestEnvironment(t *testing.T, signer *signing.EpochSigner, verifier *signing.ThresholdVerifier, threshold int) *TestEnvironment {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "fedicore-test-*")
	if err != nil {
		t.Fatalf("testutil: create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	cfg := config.DefaultConfig()
	cfg.Node.DataDir = tempDir
	cfg.Storage.Path = filepath.Join(tempDir, "db")
	cfg.Federation.Threshold = threshold

	engine, err := storage.OpenEngine(cfg.Storage.Path)
	if err != nil {
		t.Fatalf("testutil: open storage engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	registry := modules.NewRegistry()
	registry.Register(testmodule.New(LedgerInstance))

	processor := consensus.NewProcessor(engine, registry, signer, verifier, nil)

	return &TestEnvironment{
		T:         t,
		TempDir:   tempDir,
		Config:    cfg,
		Engine:    engine,
		Registry:  registry,
		Processor: processor,
	}
}

// SeedNote directly mints a spendable testmodule note at outPoint,
// bypassing the transaction pipeline, so a test scenario has something
// to spend in its first transaction without modelling a genesis epoch.
func (env *TestEnvironment) SeedNote(outPoint types.OutPoint, amount int64, pubKey []byte) {
	env.T.Helper()

	dbtx := env.Engine.BeginTx()
	defer dbtx.Discard()

	view := storage.NewModuleView(dbtx, LedgerInstance)
	note := testmodule.NotePayload{Amount: amount, PubKey: pubKey}
	encoded, err := note.Encode()
	if err != nil {
		env.T.Fatalf("testutil: encode seeded note: %v", err)
	}
	if _, err := view.InsertBytes(seedKey(outPoint), encoded); err != nil {
		env.T.Fatalf("testutil: seed note: %v", err)
	}
	if err := dbtx.Commit(); err != nil {
		env.T.Fatalf("testutil: commit seeded note: %v", err)
	}
}

func seedKey(out types.OutPoint) []byte {
	b := make([]byte, 40)
	copy(b[:32], out.TxHash[:])
	for i := 0; i < 8; i++ {
		b[32+i] = byte(out.OutIdx >> (56 - 8*i))
	}
	return b
}
