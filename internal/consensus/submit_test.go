package consensus_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechain/fedicore/internal/testmodule"
	"github.com/rechain/fedicore/pkg/types"
	"github.com/rechain/fedicore/testutil"
)

func TestSubmitTransaction_IdempotentOnAlreadyAccepted(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	pub, priv := genKeyPair(t)
	spend := types.OutPoint{TxHash: types.TxHash{9}, OutIdx: 0}
	env.SeedNote(spend, 50, pub)

	tx := types.Transaction{
		Inputs:  []types.DynInput{types.NewDynInput(testutil.LedgerInstance, testmodule.SpendPayload{Spend: spend})},
		Outputs: []types.DynOutput{types.NewDynOutput(testutil.LedgerInstance, testmodule.NotePayload{Amount: 50, PubKey: pub})},
	}
	digest, err := tx.SigningDigest(env.Processor.Codec())
	require.NoError(t, err)
	tx.Signature = ed25519.Sign(priv, digest)

	h, err := env.Processor.SubmitTransaction(tx)
	require.NoError(t, err)

	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch: 1,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			1: {types.NewTransactionItem(tx)},
		},
	})

	status, err := env.Processor.TransactionStatus(h)
	require.NoError(t, err)
	require.True(t, status.Accepted)

	// Resubmitting an already-accepted transaction is a no-op: it
	// returns the same hash without error instead of re-validating it
	// against now-spent inputs.
	h2, err := env.Processor.SubmitTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, h, h2)
}

func TestSubmitTransaction_IdempotentOnAlreadyRejected(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	pub, priv := genKeyPair(t)
	spend := types.OutPoint{TxHash: types.TxHash{10}, OutIdx: 0}
	env.SeedNote(spend, 50, pub)

	tx := types.Transaction{
		Inputs:  []types.DynInput{types.NewDynInput(testutil.LedgerInstance, testmodule.SpendPayload{Spend: spend})},
		Outputs: []types.DynOutput{types.NewDynOutput(testutil.LedgerInstance, testmodule.NotePayload{Amount: 40, PubKey: pub})},
	}
	digest, err := tx.SigningDigest(env.Processor.Codec())
	require.NoError(t, err)
	tx.Signature = ed25519.Sign(priv, digest)

	h, err := tx.Hash(env.Processor.Codec())
	require.NoError(t, err)

	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch: 1,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			1: {types.NewTransactionItem(tx)},
		},
	})

	status, err := env.Processor.TransactionStatus(h)
	require.NoError(t, err)
	require.True(t, status.Rejected)

	h2, err := env.Processor.SubmitTransaction(tx)
	require.NoError(t, err)
	assert.Equal(t, h, h2)
}

// An empty transaction (no inputs, no outputs) has nothing to validate
// and trivially balances (0 == 0 + 0 fee), so submission must succeed
// rather than failing funding.
func TestSubmitTransaction_EmptyTransactionBalances(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	tx := types.Transaction{}
	h, err := env.Processor.SubmitTransaction(tx)
	require.NoError(t, err)

	status, err := env.Processor.TransactionStatus(h)
	require.NoError(t, err)
	assert.True(t, status.Proposed)
}

func genKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}
