package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechain/fedicore/internal/storage"
)

func openTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	dir, err := os.MkdirTemp("", "fedicore-storage-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	engine, err := storage.OpenEngine(filepath.Join(dir, "db"))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestDbTx_Savepoints(t *testing.T) {
	engine := openTestEngine(t)

	t.Run("rollback to savepoint discards writes made after it", func(t *testing.T) {
		dbtx := engine.BeginTx()
		defer dbtx.Discard()

		_, err := dbtx.InsertBytes([]byte("kept"), []byte("a"))
		require.NoError(t, err)

		dbtx.SetSavepoint()

		_, err = dbtx.InsertBytes([]byte("discarded"), []byte("b"))
		require.NoError(t, err)

		dbtx.RollbackToSavepoint()

		v, err := dbtx.GetBytes([]byte("kept"))
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), v)

		v, err = dbtx.GetBytes([]byte("discarded"))
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("rollback with no savepoint set is a no-op, not an error", func(t *testing.T) {
		dbtx := engine.BeginTx()
		defer dbtx.Discard()

		_, err := dbtx.InsertBytes([]byte("untouched"), []byte("c"))
		require.NoError(t, err)

		dbtx.RollbackToSavepoint()

		v, err := dbtx.GetBytes([]byte("untouched"))
		require.NoError(t, err)
		assert.Equal(t, []byte("c"), v)
	})

	t.Run("setting a savepoint twice moves the mark rather than stacking", func(t *testing.T) {
		dbtx := engine.BeginTx()
		defer dbtx.Discard()

		_, err := dbtx.InsertBytes([]byte("first"), []byte("1"))
		require.NoError(t, err)
		dbtx.SetSavepoint()

		_, err = dbtx.InsertBytes([]byte("second"), []byte("2"))
		require.NoError(t, err)
		dbtx.SetSavepoint()

		_, err = dbtx.InsertBytes([]byte("third"), []byte("3"))
		require.NoError(t, err)

		dbtx.RollbackToSavepoint()

		v, err := dbtx.GetBytes([]byte("second"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)

		v, err = dbtx.GetBytes([]byte("third"))
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestDbTx_WriteConflict(t *testing.T) {
	engine := openTestEngine(t)

	seed := engine.BeginTx()
	_, err := seed.InsertBytes([]byte("contested"), []byte("initial"))
	require.NoError(t, err)
	require.NoError(t, seed.Commit())

	txA := engine.BeginTx()
	txB := engine.BeginTx()
	defer txB.Discard()

	_, err = txA.GetBytes([]byte("contested"))
	require.NoError(t, err)
	_, err = txA.InsertBytes([]byte("contested"), []byte("from-a"))
	require.NoError(t, err)
	require.NoError(t, txA.Commit())

	_, err = txB.GetBytes([]byte("contested"))
	require.NoError(t, err)
	_, err = txB.InsertBytes([]byte("contested"), []byte("from-b"))
	require.NoError(t, err)

	err = txB.Commit()
	assert.ErrorIs(t, err, storage.ErrWriteConflict)
}

func TestDbTx_OverlayVisibleToOwnReads(t *testing.T) {
	engine := openTestEngine(t)

	dbtx := engine.BeginTx()
	defer dbtx.Discard()

	_, err := dbtx.InsertBytes([]byte("k"), []byte("v1"))
	require.NoError(t, err)

	v, err := dbtx.GetBytes([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	prior, err := dbtx.Remove([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), prior)

	v, err = dbtx.GetBytes([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, v)
}
