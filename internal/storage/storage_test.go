package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "options"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := kv.Put(ctx, "options", []byte(`{"preset":"default"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, "options", []byte(`{"preset":"jquery"}`)); err != nil {
		t.Fatalf("Put (replace): %v", err)
	}

	got, ok, err := kv.Get(ctx, "options")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if string(got) != `{"preset":"jquery"}` {
		t.Errorf("Get = %s", got)
	}

	if err := kv.Delete(ctx, "options"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := kv.Delete(ctx, "options"); err != nil {
		t.Fatalf("Delete (missing): %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "options"); ok {
		t.Error("key still present after Delete")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	testKV(t, m)

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Put(context.Background(), "k", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close = %v, want ErrClosed", err)
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	_ = m.Put(ctx, "k", buf)
	buf[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %s", got)
	}
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	testKV(t, db)

	ctx := context.Background()
	if err := db.Put(ctx, "options", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Values survive reopening.
	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	got, ok, err := db.Get(ctx, "options")
	if err != nil || !ok || string(got) != `{"a":1}` {
		t.Errorf("after reopen Get = %s, %v, %v", got, ok, err)
	}
}
