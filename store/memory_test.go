package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pythonvista/intelligent-libary/core"
)

func TestMemoryStore_GetSet(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want ErrStoreNotFound", err)
	}

	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v, want v, nil", got, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(deleted) error = %v, want ErrStoreNotFound", err)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "short", []byte("v"), 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := m.Get(ctx, "short"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	time.Sleep(1100 * time.Millisecond)
	if _, err := m.Get(ctx, "short"); !core.IsStoreNotFound(err) {
		t.Errorf("Get() after expiry error = %v, want ErrStoreNotFound", err)
	}
}

func TestMemoryStore_Batch(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	kvs := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := m.BatchSet(ctx, kvs); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	got, err := m.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet() = %v", got)
	}
}

func TestMemoryStore_ZSet(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	for member, score := range map[string]float64{"book1": 1.5, "book2": 3.0, "book3": 0.4} {
		if err := m.ZAdd(ctx, "trending", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	got, err := m.ZRange(ctx, "trending", 0, 1)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	if len(got) != 2 || got[0] != "book2" || got[1] != "book1" {
		t.Errorf("ZRange() = %v, want [book2 book1]", got)
	}

	score, err := m.ZScore(ctx, "trending", "book3")
	if err != nil || score != 0.4 {
		t.Errorf("ZScore() = %v, %v, want 0.4, nil", score, err)
	}
	if _, err := m.ZScore(ctx, "trending", "ghost"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore(missing member) error = %v, want ErrStoreNotFound", err)
	}
}

func TestSnapshots(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	s := &Snapshots{S: m}
	if err := s.SaveSnapshot(ctx, "svd", []byte("blob")); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	got, err := s.LoadSnapshot(ctx, "svd")
	if err != nil || string(got) != "blob" {
		t.Errorf("LoadSnapshot() = %q, %v, want blob, nil", got, err)
	}
	if _, err := s.LoadSnapshot(ctx, "nmf"); !core.IsStoreNotFound(err) {
		t.Errorf("LoadSnapshot(missing) error = %v, want ErrStoreNotFound", err)
	}
}

func TestBoltSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	b, err := OpenBoltSnapshots(path)
	if err != nil {
		t.Fatalf("OpenBoltSnapshots() error = %v", err)
	}

	if err := b.SaveSnapshot(ctx, "tfidf", []byte("blob")); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Snapshots survive reopen.
	b, err = OpenBoltSnapshots(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer b.Close()

	got, err := b.LoadSnapshot(ctx, "tfidf")
	if err != nil || string(got) != "blob" {
		t.Errorf("LoadSnapshot() = %q, %v, want blob, nil", got, err)
	}
	if _, err := b.LoadSnapshot(ctx, "ghost"); !core.IsStoreNotFound(err) {
		t.Errorf("LoadSnapshot(missing) error = %v, want ErrStoreNotFound", err)
	}
}
