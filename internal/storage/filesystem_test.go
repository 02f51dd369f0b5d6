package storage

import (
	"context"
	"testing"
)

func TestFileStoreWriteAndRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}

	key, err := store.Write(context.Background(), "user-1/rec-1.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if key != "user-1/rec-1.png" {
		t.Fatalf("key = %q", key)
	}
	if got := store.PublicURL(key); got != "http://localhost:8080/static/user-1/rec-1.png" {
		t.Fatalf("PublicURL = %q", got)
	}

	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("round trip mismatch: %q", data)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	if _, err := store.Write(context.Background(), "../outside.png", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}
