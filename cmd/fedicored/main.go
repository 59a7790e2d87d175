// Command fedicored wires one guardian's consensus core: the
// transactional KV store, the module registry, the epoch threshold
// signer/verifier, the best-effort archiver, and the epoch
// processor/transaction pipeline. The BFT engine lives in its own
// process tree and drives the wired Processor with ConsensusOutcomes
// and proposal requests.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rechain/fedicore/internal/archive"
	"github.com/rechain/fedicore/internal/consensus"
	"github.com/rechain/fedicore/internal/modules"
	"github.com/rechain/fedicore/internal/signing"
	"github.com/rechain/fedicore/internal/storage"
	"github.com/rechain/fedicore/pkg/codec"
	"github.com/rechain/fedicore/pkg/config"
	"github.com/rechain/fedicore/pkg/types"
)

func main() {
	configFile := flag.String("config", "./config/fedicored.yaml", "path to node configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("fedicored: load config: %v", err)
	}

	engine, err := storage.OpenEngine(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("fedicored: open storage engine: %v", err)
	}
	defer engine.Close()

	// The module plug-in contract (internal/modules.Module) is this
	// core's extension point; concrete module business logic (mint,
	// wallet, lightning, ...) registers itself by calling
	// registry.Register from its own package's wiring.
	registry := modules.NewRegistry()

	verifier, err := buildThresholdVerifier(cfg)
	if err != nil {
		log.Fatalf("fedicored: build threshold verifier: %v", err)
	}

	// DKG-provisioned key material is handled by the setup tooling, not
	// here: this signer is generated fresh on every start. A guardian's
	// EpochInfo shares are only useful once its public key has been
	// distributed to every other guardian out of band.
	signer, err := signing.NewEpochSigner(types.PeerId(cfg.Node.PeerID))
	if err != nil {
		log.Fatalf("fedicored: generate epoch signer: %v", err)
	}
	log.Printf("fedicored: guardian %d public key: %s", cfg.Node.PeerID, hex.EncodeToString(signer.PublicKey()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var archiver *archive.Archiver
	if cfg.Archive.Endpoint != "" {
		archiveCodec := codec.NewCodec(registry.BuildDecoderRegistry())
		archiver, err = archive.NewArchiver(ctx, archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			Secure:    cfg.Archive.UseSSL,
		}, archiveCodec)
		if err != nil {
			log.Fatalf("fedicored: start archiver: %v", err)
		}
	}

	processor := consensus.NewProcessor(engine, registry, signer, verifier, archiver)
	_ = processor // wired and ready for the BFT engine to drive

	log.Printf("fedicored: guardian %d ready, data dir %s", cfg.Node.PeerID, cfg.Node.DataDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("fedicored: shutting down")
}

// buildThresholdVerifier decodes the federation's configured guardian
// public keys into a signing.ThresholdVerifier.
func buildThresholdVerifier(cfg *config.Config) (*signing.ThresholdVerifier, error) {
	pubKeys := make(map[types.PeerId]ed25519.PublicKey, len(cfg.Federation.Peers))
	for _, peer := range cfg.Federation.Peers {
		raw, err := hex.DecodeString(peer.PublicKey)
		if err != nil {
			return nil, err
		}
		pubKeys[types.PeerId(peer.PeerID)] = ed25519.PublicKey(raw)
	}
	return signing.NewThresholdVerifier(pubKeys, cfg.Federation.Threshold), nil
}
