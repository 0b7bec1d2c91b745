package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := OpenDSN(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, "journal.db"))
	assert.NoError(t, err)
}

func TestRecord_UpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Entry{
		ID: "inv-1", Op: "token_transfer", Chain: "testnet",
		Recipient: "0x1111111111111111111111111111111111111111",
		Token:     "USDC", Amount: "10", Status: StatusPending, CreatedAt: created,
	}))
	require.NoError(t, s.Record(ctx, Entry{
		ID: "inv-1", Op: "token_transfer", Chain: "testnet",
		Status: StatusSubmitted, TxHash: "0xabc", CreatedAt: created.Add(time.Hour),
	}))

	got, err := s.Get(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
	assert.Equal(t, "0xabc", got.TxHash)
	assert.Equal(t, "USDC", got.Token)
	assert.Equal(t, "10", got.Amount)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestRecord_Validation(t *testing.T) {
	s := openMemory(t)
	assert.Error(t, s.Record(context.Background(), Entry{Op: "swap"}))

	var nilStore *Store
	assert.Error(t, nilStore.Record(context.Background(), Entry{ID: "x"}))
	assert.NoError(t, nilStore.Close())
}

func TestGet_NotFound(t *testing.T) {
	s := openMemory(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, Entry{
			ID: id, Op: "swap", Chain: "testnet", Status: StatusFailed,
			ErrorKind: "rpc", ErrorCode: "QUOTE_FAILED", Error: "boom",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := s.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "c", got[0].ID)
		assert.Equal(t, "a", got[2].ID)
		assert.Equal(t, "QUOTE_FAILED", got[0].ErrorCode)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.Recent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
