package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBPutGet(t *testing.T) {
	db := NewMemDB()

	_, ok, err := db.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.Put([]byte("k"), []byte("v1")))

	value, ok, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)

	require.NoError(t, db.Put([]byte("k"), []byte("v2")))

	value, _, _ = db.Get([]byte("k"))
	require.Equal(t, []byte("v2"), value)
}

func TestMemDBCopiesBuffers(t *testing.T) {
	db := NewMemDB()

	stored := []byte("original")
	require.NoError(t, db.Put([]byte("k"), stored))

	stored[0] = 'X'
	value, _, _ := db.Get([]byte("k"))
	require.Equal(t, []byte("original"), value, "stored value aliased the caller's buffer")

	value[0] = 'Y'
	again, _, _ := db.Get([]byte("k"))
	require.Equal(t, []byte("original"), again, "returned value aliased the stored buffer")
}

func TestLevelDBRoundTripPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)

	_, ok, err := db1.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db1.Put([]byte("k"), []byte("v")))
	require.NoError(t, db1.Close())

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	value, ok, err := db2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)
}
