package storage_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"splice/internal/storage"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	key := storage.OutputKey(uuid.New(), uuid.New())
	n, err := store.Put(key, strings.NewReader("encoded bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if n != int64(len("encoded bytes")) {
		t.Fatalf("unexpected length: %d", n)
	}

	exists, err := store.Exists(key)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true", exists, err)
	}

	r, err := store.Open(key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "encoded bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestFSStoreOpenMissing(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	_, err = store.Open(storage.SourceKey(uuid.New()))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStoreExistsBeforeWrite(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	exists, err := store.Exists(storage.SourceKey(uuid.New()))
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("blob should not exist before write")
	}
}

func TestFSStorePutReplaces(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	key := storage.SourceKey(uuid.New())
	if _, err := store.Put(key, strings.NewReader("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Put(key, strings.NewReader("second")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	r, err := store.Open(key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "second" {
		t.Fatalf("unexpected content after replace: %q", data)
	}
}

func TestFSStoreRemoveMissingIsNoop(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if err := store.Remove(storage.SourceKey(uuid.New())); err != nil {
		t.Fatalf("Remove of missing blob failed: %v", err)
	}
}
