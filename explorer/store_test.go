package explorer

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arcadia/core/events"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	store.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return store
}

func stakedEvent(pool, account byte, amount int64) events.LPStaked {
	var poolAddr, accountAddr [20]byte
	poolAddr[19] = pool
	accountAddr[19] = account
	return events.LPStaked{
		Pool:           poolAddr,
		Account:        accountAddr,
		Amount:         big.NewInt(amount),
		NewUserBalance: big.NewInt(amount),
		NewPoolTotal:   big.NewInt(amount),
	}
}

func TestEmitAssignsSequenceAndDigest(t *testing.T) {
	store := openTestStore(t)

	store.Emit(stakedEvent(0xA0, 0x01, 100))
	store.Emit(stakedEvent(0xA0, 0x02, 200))

	last, err := store.LastSequence()
	require.NoError(t, err)
	require.Equal(t, uint64(2), last)

	receipts, err := store.After(0, 10)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	require.Equal(t, uint64(1), receipts[0].Sequence)
	require.Equal(t, uint64(2), receipts[1].Sequence)
	require.Equal(t, events.TypeLPStaked, receipts[0].Type)
	require.NotEmpty(t, receipts[0].ID)
	require.NotEqual(t, receipts[0].ID, receipts[1].ID)
	require.Len(t, receipts[0].Digest, 64)

	// Identical payloads digest identically; different payloads differ.
	repeat, err := store.Index(stakedEvent(0xA0, 0x01, 100).Event())
	require.NoError(t, err)
	require.Equal(t, receipts[0].Digest, repeat.Digest)
	require.NotEqual(t, receipts[0].Digest, receipts[1].Digest)
}

func TestAfterHonoursCursor(t *testing.T) {
	store := openTestStore(t)
	for i := int64(1); i <= 5; i++ {
		store.Emit(stakedEvent(0xA0, 0x01, i))
	}

	receipts, err := store.After(3, 10)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	require.Equal(t, uint64(4), receipts[0].Sequence)
	require.Equal(t, uint64(5), receipts[1].Sequence)

	receipts, err = store.After(5, 10)
	require.NoError(t, err)
	require.Empty(t, receipts)
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	for i := int64(1); i <= 4; i++ {
		store.Emit(stakedEvent(0xA0, 0x01, i))
	}

	receipts, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	require.Equal(t, uint64(4), receipts[0].Sequence)
	require.Equal(t, uint64(3), receipts[1].Sequence)
}

func TestPoolAndAccountIndexes(t *testing.T) {
	store := openTestStore(t)
	store.Emit(stakedEvent(0xA0, 0x01, 100))
	store.Emit(stakedEvent(0xA1, 0x01, 200))
	store.Emit(stakedEvent(0xA0, 0x02, 300))

	poolAttr := stakedEvent(0xA0, 0x01, 0).Event().Attributes["pool"]
	byPool, err := store.ByPool(poolAttr, 10)
	require.NoError(t, err)
	require.Len(t, byPool, 2)
	require.Equal(t, uint64(3), byPool[0].Sequence)
	require.Equal(t, uint64(1), byPool[1].Sequence)

	accountAttr := stakedEvent(0xA0, 0x01, 0).Event().Attributes["account"]
	byAccount, err := store.ByAccount(accountAttr, 10)
	require.NoError(t, err)
	require.Len(t, byAccount, 2)
	require.Equal(t, uint64(2), byAccount[0].Sequence)
	require.Equal(t, uint64(1), byAccount[1].Sequence)

	empty, err := store.ByPool("unknown", 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSubscribeStreamsNewReceipts(t *testing.T) {
	store := openTestStore(t)
	ch, cancel := store.Subscribe(8)
	defer cancel()

	store.Emit(stakedEvent(0xA0, 0x01, 100))

	select {
	case receipt := <-ch:
		require.Equal(t, uint64(1), receipt.Sequence)
	case <-time.After(time.Second):
		t.Fatal("no receipt delivered")
	}

	cancel()
	_, open := <-ch
	require.False(t, open)
}

func TestReopenPreservesReceipts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipts.db")

	store, err := Open(path)
	require.NoError(t, err)
	store.Emit(stakedEvent(0xA0, 0x01, 100))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	last, err := reopened.LastSequence()
	require.NoError(t, err)
	require.Equal(t, uint64(1), last)

	reopened.Emit(stakedEvent(0xA0, 0x01, 200))
	last, err = reopened.LastSequence()
	require.NoError(t, err)
	require.Equal(t, uint64(2), last)
}
