package chain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s KVStore, prefix string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, s.Iterate([]byte(prefix), func(k, v []byte) bool {
		out[string(k)] = string(v)
		return true
	}))
	return out
}

func exerciseStore(t *testing.T, s KVStore) {
	t.Helper()

	v, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set([]byte("a/1"), []byte("one")))
	require.NoError(t, s.Set([]byte("a/2"), []byte("two")))
	require.NoError(t, s.Set([]byte("b/1"), []byte("other")))
	require.NoError(t, s.Set([]byte("a/1"), []byte("uno")))

	v, err = s.Get([]byte("a/1"))
	require.NoError(t, err)
	assert.Equal(t, "uno", string(v))

	assert.Equal(t, map[string]string{"a/1": "uno", "a/2": "two"}, collect(t, s, "a/"))

	require.NoError(t, s.Delete([]byte("a/2")))
	has, err := s.Has([]byte("a/2"))
	require.NoError(t, err)
	assert.False(t, has)
	assert.Len(t, collect(t, s, ""), 2)
}

func TestMemDB(t *testing.T) {
	exerciseStore(t, NewMemDB())
}

func TestSQLiteDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := OpenSQLiteDB(path)
	require.NoError(t, err)
	exerciseStore(t, db)
	require.NoError(t, db.Close())

	// Reopening keeps the data and does not re-run the migration.
	db, err = OpenSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get([]byte("b/1"))
	require.NoError(t, err)
	assert.Equal(t, "other", string(v))
}

func TestFileDBRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	db, err := OpenFileDB(path)
	require.NoError(t, err)
	exerciseStore(t, db)
	require.NoError(t, db.Set([]byte{0x00, 0xff}, []byte("binary")))
	require.NoError(t, db.Flush())

	reopened, err := OpenFileDB(path)
	require.NoError(t, err)
	assert.Equal(t, collect(t, db, ""), collect(t, reopened, ""))
}

func TestCacheKVBuffersUntilWrite(t *testing.T) {
	parent := NewMemDB()
	require.NoError(t, parent.Set([]byte("k/keep"), []byte("1")))
	require.NoError(t, parent.Set([]byte("k/drop"), []byte("2")))

	cache := NewCacheKV(parent)
	require.NoError(t, cache.Set([]byte("k/new"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("k/drop")))

	assert.Equal(t, map[string]string{"k/keep": "1", "k/new": "3"}, collect(t, cache, "k/"))
	assert.Equal(t, map[string]string{"k/keep": "1", "k/drop": "2"}, collect(t, parent, "k/"))
	assert.True(t, cache.Dirty())

	nested := NewCacheKV(cache)
	require.NoError(t, nested.Set([]byte("k/nested"), []byte("4")))
	// Dropping the nested branch leaves its parent untouched.
	has, err := cache.Has([]byte("k/nested"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, cache.Write())
	assert.False(t, cache.Dirty())
	assert.Equal(t, map[string]string{"k/keep": "1", "k/new": "3"}, collect(t, parent, "k/"))

	require.Error(t, cache.Set([]byte("empty"), nil))
}

func TestPrefixStoreIsolation(t *testing.T) {
	root := NewMemDB()
	a := NewPrefixStore(root, "contract/a/")
	b := NewPrefixStore(root, "contract/b/")

	require.NoError(t, a.Set([]byte("x"), []byte("from-a")))
	require.NoError(t, b.Set([]byte("x"), []byte("from-b")))

	assert.Equal(t, map[string]string{"x": "from-a"}, collect(t, a, ""))
	v, err := root.Get([]byte("contract/b/x"))
	require.NoError(t, err)
	assert.Equal(t, "from-b", string(v))
}

func TestTypedItemAndMap(t *testing.T) {
	s := NewMemDB()
	item := NewItem[Coin]("coin")

	_, err := item.Load(s)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, item.Save(s, NewCoin("uatom", 7)))
	got, err := item.Load(s)
	require.NoError(t, err)
	assert.Equal(t, "7uatom", got.String())

	require.NoError(t, item.Remove(s))
	_, ok, err := item.MayLoad(s)
	require.NoError(t, err)
	assert.False(t, ok)

	m := NewMap[string]("venues")
	require.NoError(t, m.Save(s, "osmosis", "adapter1"))
	require.NoError(t, m.Save(s, "astroport", "adapter2"))
	keys, err := m.Keys(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"astroport", "osmosis"}, keys)

	_, err = m.Load(s, "neutron")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBankSend(t *testing.T) {
	s := NewMemDB()
	var bank Bank
	require.NoError(t, bank.Mint(s, "alice", Coins{NewCoin("uatom", 10), NewCoin("uosmo", 3)}))

	require.NoError(t, bank.Send(s, "alice", "bob", Coins{NewCoin("uatom", 10), NewCoin("uosmo", 0)}))
	all, err := bank.AllBalances(s, "alice")
	require.NoError(t, err)
	assert.Equal(t, "3uosmo", all.String())

	err = bank.Send(s, "bob", "alice", Coins{NewCoin("uatom", 11)})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err := bank.Balance(s, "bob", "uatom")
	require.NoError(t, err)
	assert.Equal(t, "10", bal.String())
}
