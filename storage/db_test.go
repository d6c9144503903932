package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.Put([]byte("alpha"), []byte{0x01}))

	value, err := db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, value)

	ok, err := db.Has([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	ok, err = db.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte{0x0a}
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 0xff

	stored, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a}, stored)

	stored[0] = 0xee
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a}, again)
}

func TestMemDBWriteBatch(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	pairs := []KV{
		{Key: []byte("a"), Value: []byte{1}},
		{Key: []byte("b"), Value: []byte{2}},
		{Key: []byte("a"), Value: []byte{3}},
	}
	require.NoError(t, db.WriteBatch(pairs))

	a, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte{3}, a, "later batch entries overwrite earlier ones")

	b, err := db.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte{2}, b)
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("alpha"), []byte{0x01}))

	value, err := db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, value)

	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, db.WriteBatch([]KV{
		{Key: []byte("x"), Value: []byte{9}},
		{Key: []byte("y"), Value: []byte{8}},
	}))
	ok, err := db.Has([]byte("y"))
	require.NoError(t, err)
	require.True(t, ok)
}
