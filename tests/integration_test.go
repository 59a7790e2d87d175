// Package tests exercises the wired consensus core end to end through
// testutil.TestEnvironment: one transactional storage engine, one
// testmodule.Module ledger instance, and the consensus.Processor that
// ties begin/process/end-epoch together, driven directly the way a BFT
// engine would.
package tests

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rechain/fedicore/internal/signing"
	"github.com/rechain/fedicore/internal/testmodule"
	"github.com/rechain/fedicore/testutil"

	"github.com/rechain/fedicore/pkg/types"
)

func genKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

// buildSpendTx builds an unsigned, single-input single-output
// transaction spending spend for outAmount, ready for SigningDigest +
// Signature to be filled in by the caller.
func buildSpendTx(spend types.OutPoint, outAmount int64, outPubKey []byte) types.Transaction {
	return types.Transaction{
		Inputs: []types.DynInput{
			types.NewDynInput(testutil.LedgerInstance, testmodule.SpendPayload{Spend: spend}),
		},
		Outputs: []types.DynOutput{
			types.NewDynOutput(testutil.LedgerInstance, testmodule.NotePayload{Amount: outAmount, PubKey: outPubKey}),
		},
	}
}

func signTx(t *testing.T, env *testutil.TestEnvironment, tx types.Transaction, priv ed25519.PrivateKey) types.Transaction {
	t.Helper()
	digest, err := tx.SigningDigest(env.Processor.Codec())
	require.NoError(t, err)
	tx.Signature = ed25519.Sign(priv, digest)
	return tx
}

// S1: an empty epoch (epoch 0, no contributions) persists a genesis
// EpochHistory entry with a zero previous_hash and no threshold
// signature yet, and advances the last-epoch pointer to 0.
func TestScenarioS1_EmptyEpoch(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	outcome := types.ConsensusOutcome{Epoch: 0, Contributions: map[types.PeerId][]types.ConsensusItem{}}
	env.Processor.ProcessConsensusOutcome(outcome)

	hist, ok, err := env.Processor.EpochHistoryAt(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, hist.PreviousHash.IsZero())
	require.Nil(t, hist.LastSignature)

	epoch, ok, err := env.Processor.LastEpoch()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), epoch)
}

// S2: a single well-formed, balanced, validly signed transaction is
// accepted and recorded in the epoch it was processed in, and no longer
// appears as proposed.
func TestScenarioS2_SingleAcceptedTransaction(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	pub, priv := genKeyPair(t)
	spend := types.OutPoint{TxHash: types.TxHash{1}, OutIdx: 0}
	env.SeedNote(spend, 100, pub)

	tx := signTx(t, env, buildSpendTx(spend, 100, pub), priv)
	h, err := tx.Hash(env.Processor.Codec())
	require.NoError(t, err)

	outcome := types.ConsensusOutcome{
		Epoch: 1,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			1: {types.NewTransactionItem(tx)},
		},
	}
	env.Processor.ProcessConsensusOutcome(outcome)

	status, err := env.Processor.TransactionStatus(h)
	require.NoError(t, err)
	require.True(t, status.Known)
	require.True(t, status.Accepted)
	require.False(t, status.Proposed)
	require.Equal(t, uint64(1), status.AcceptedAt.Epoch)

	hist, ok, err := env.Processor.EpochHistoryAt(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), hist.Outcome.Epoch)

	out, err := env.Processor.OutputStatus(types.OutPoint{TxHash: h, OutIdx: 0})
	require.NoError(t, err)
	outcomePayload, ok := out.Payload.(testmodule.OutcomePayload)
	require.True(t, ok)
	require.False(t, outcomePayload.Spent)
	require.Equal(t, int64(100), outcomePayload.Amount)
}

// S3: a transaction whose inputs don't balance its outputs plus fees is
// rejected, with a reason describing the mismatch, and leaves the
// spent note untouched (module state is rolled back to the savepoint).
func TestScenarioS3_UnbalancedTransactionRejected(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	pub, priv := genKeyPair(t)
	spend := types.OutPoint{TxHash: types.TxHash{2}, OutIdx: 0}
	env.SeedNote(spend, 100, pub)

	tx := signTx(t, env, buildSpendTx(spend, 90, pub), priv)
	h, err := tx.Hash(env.Processor.Codec())
	require.NoError(t, err)

	outcome := types.ConsensusOutcome{
		Epoch: 1,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			1: {types.NewTransactionItem(tx)},
		},
	}
	env.Processor.ProcessConsensusOutcome(outcome)

	status, err := env.Processor.TransactionStatus(h)
	require.NoError(t, err)
	require.True(t, status.Known)
	require.True(t, status.Rejected)
	require.Contains(t, status.RejectionReason, "unbalanced")
}

// S4: the same transaction contributed by two different peers within
// one epoch's outcome is accepted exactly once; the second occurrence
// is a silent no-op rather than a double-spend or an error.
func TestScenarioS4_DuplicateTransactionAcrossPeers(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	pub, priv := genKeyPair(t)
	spend := types.OutPoint{TxHash: types.TxHash{3}, OutIdx: 0}
	env.SeedNote(spend, 100, pub)

	tx := signTx(t, env, buildSpendTx(spend, 100, pub), priv)
	h, err := tx.Hash(env.Processor.Codec())
	require.NoError(t, err)

	outcome := types.ConsensusOutcome{
		Epoch: 1,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			1: {types.NewTransactionItem(tx)},
			2: {types.NewTransactionItem(tx)},
		},
	}
	env.Processor.ProcessConsensusOutcome(outcome)

	status, err := env.Processor.TransactionStatus(h)
	require.NoError(t, err)
	require.True(t, status.Accepted)

	out, err := env.Processor.OutputStatus(types.OutPoint{TxHash: h, OutIdx: 0})
	require.NoError(t, err)
	outcomePayload, ok := out.Payload.(testmodule.OutcomePayload)
	require.True(t, ok)
	require.Equal(t, int64(100), outcomePayload.Amount)
}

// S5: once a following epoch's outcome carries at least threshold
// valid EpochInfo shares over a prior epoch's hash, that prior epoch's
// history entry gains a threshold signature.
func TestScenarioS5_ThresholdSignPreviousEpoch(t *testing.T) {
	const threshold = 2
	peer1, peer2, peer3 := types.PeerId(1), types.PeerId(2), types.PeerId(3)

	signer1, err := signing.NewEpochSigner(peer1)
	require.NoError(t, err)
	signer2, err := signing.NewEpochSigner(peer2)
	require.NoError(t, err)
	signer3, err := signing.NewEpochSigner(peer3)
	require.NoError(t, err)

	verifierKeys := map[types.PeerId]ed25519.PublicKey{
		peer1: signer1.PublicKey(),
		peer2: signer2.PublicKey(),
		peer3: signer3.PublicKey(),
	}

	env := testutil.NewTestEnvironmentWithFederation(t, peer1, verifierKeys, threshold)

	// Epoch 0: genesis, establishes EpochHistory(0).
	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch:         0,
		Contributions: map[types.PeerId][]types.ConsensusItem{},
	})

	hist0, ok, err := env.Processor.EpochHistoryAt(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, hist0.LastSignature)

	// Epoch 1: nobody contributes a share over epoch 0's hash, so
	// neither entry is signed yet.
	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch:         1,
		Contributions: map[types.PeerId][]types.ConsensusItem{},
	})

	hist1, ok, err := env.Processor.EpochHistoryAt(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, hist1.LastSignature)

	// Epoch 2: two of three guardians contribute a valid EpochInfo
	// share over EpochHistory(1).Hash, meeting the threshold.
	share1 := signer1.Sign(hist1.Hash)
	share2 := signer2.Sign(hist1.Hash)

	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch: 2,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			peer1: {types.NewEpochInfoItem(share1)},
			peer2: {types.NewEpochInfoItem(share2)},
			peer3: {},
		},
	})

	signedHist1, ok, err := env.Processor.EpochHistoryAt(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, signedHist1.LastSignature)
}

// S6: a guardian expected to contribute an EpochInfo share who
// contributes none, while the remaining guardians still reach
// threshold, is added to the drop list surfaced in the next proposal.
func TestScenarioS6_PeerDroppedOnMissingShare(t *testing.T) {
	const threshold = 2
	peer1, peer2, peer3 := types.PeerId(1), types.PeerId(2), types.PeerId(3)

	signer1, err := signing.NewEpochSigner(peer1)
	require.NoError(t, err)
	signer2, err := signing.NewEpochSigner(peer2)
	require.NoError(t, err)
	signer3, err := signing.NewEpochSigner(peer3)
	require.NoError(t, err)

	verifierKeys := map[types.PeerId]ed25519.PublicKey{
		peer1: signer1.PublicKey(),
		peer2: signer2.PublicKey(),
		peer3: signer3.PublicKey(),
	}

	env := testutil.NewTestEnvironmentWithFederation(t, peer1, verifierKeys, threshold)

	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch:         0,
		Contributions: map[types.PeerId][]types.ConsensusItem{},
	})
	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch: 1,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			peer1: {}, peer2: {}, peer3: {},
		},
	})

	hist1, ok, err := env.Processor.EpochHistoryAt(1)
	require.NoError(t, err)
	require.True(t, ok)

	share1 := signer1.Sign(hist1.Hash)
	share2 := signer2.Sign(hist1.Hash)

	// peer3 contributes to the epoch (it appears as a contributor key)
	// but supplies no EpochInfo share, while peer1 and peer2 still meet
	// threshold.
	env.Processor.ProcessConsensusOutcome(types.ConsensusOutcome{
		Epoch: 2,
		Contributions: map[types.PeerId][]types.ConsensusItem{
			peer1: {types.NewEpochInfoItem(share1)},
			peer2: {types.NewEpochInfoItem(share2)},
			peer3: {},
		},
	})

	// The threshold was still met without peer3, so epoch 1 gets its
	// signature, and peer3 is dropped for withholding its share.
	signedHist1, ok, err := env.Processor.EpochHistoryAt(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, signedHist1.LastSignature)

	proposal, err := env.Processor.GetConsensusProposal()
	require.NoError(t, err)
	require.Contains(t, proposal.DropPeers, peer3)
	require.NotContains(t, proposal.DropPeers, peer1)
	require.NotContains(t, proposal.DropPeers, peer2)
}
