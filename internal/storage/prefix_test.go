package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrefixDB(t *testing.T) {
	db := NewPrefixDB(NewMemory(), []byte("mainnet/"))
	defer db.Close()
	testDB(t, db)
}

func TestPrefixDB_OverBadger(t *testing.T) {
	inner, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error: %v", err)
	}
	defer inner.Close()
	testDB(t, NewPrefixDB(inner, []byte("testnet/")))
}

// Token metadata for the same token id lives once per network.
func TestPrefixDB_NetworksIsolated(t *testing.T) {
	inner := NewMemory()
	mainnetDB := NewPrefixDB(inner, []byte("mainnet/"))
	testnetDB := NewPrefixDB(inner, []byte("testnet/"))
	key := append([]byte("t/"), bytes.Repeat([]byte{0xab}, 32)...)

	if err := mainnetDB.Put(key, []byte(`{"ticker":"MAIN"}`)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := testnetDB.Has(key); ok {
		t.Fatal("testnet namespace sees mainnet metadata")
	}
	if _, err := testnetDB.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("testnet Get = %v, want ErrNotFound", err)
	}
	if err := testnetDB.Put(key, []byte(`{"ticker":"TEST"}`)); err != nil {
		t.Fatal(err)
	}

	got, err := mainnetDB.Get(key)
	if err != nil || string(got) != `{"ticker":"MAIN"}` {
		t.Fatalf("mainnet Get = %q, %v", got, err)
	}
	raw, err := inner.Get(append([]byte("testnet/"), key...))
	if err != nil || string(raw) != `{"ticker":"TEST"}` {
		t.Fatalf("inner layout = %q, %v", raw, err)
	}
}

func TestPrefixDB_ForEachStripsNamespace(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("regtest/"))
	db.Put([]byte("t/a"), []byte("1"))
	db.Put([]byte("t/b"), []byte("2"))
	db.Put([]byte("x/c"), []byte("3"))
	inner.Put([]byte("t/outside"), []byte("4"))

	var keys []string
	err := db.ForEach([]byte("t/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(keys) != 2 || keys[0] != "t/a" || keys[1] != "t/b" {
		t.Fatalf("ForEach keys = %v, want [t/a t/b]", keys)
	}
}

func TestPrefixDB_CloseLeavesInnerOpen(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := inner.Get([]byte("x/key"))
	if err != nil || string(got) != "val" {
		t.Fatalf("inner.Get after Close = %q, %v", got, err)
	}
}

func TestNewPrefixDB_CopiesPrefix(t *testing.T) {
	prefix := []byte("mainnet/")
	db := NewPrefixDB(NewMemory(), prefix)
	prefix[0] = 'X'
	db.Put([]byte("k"), []byte("v"))
	if ok, _ := db.inner.Has([]byte("mainnet/k")); !ok {
		t.Fatal("prefix was not copied at construction")
	}
}
