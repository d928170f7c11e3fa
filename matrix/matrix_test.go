package matrix

import (
	"testing"
	"time"

	"github.com/pythonvista/intelligent-libary/core"
)

func TestBuildIndex_Deterministic(t *testing.T) {
	a := BuildIndex([]string{"user3", "user1", "user2", "user1"})
	b := BuildIndex([]string{"user1", "user2", "user3"})

	if a.Len() != 3 || b.Len() != 3 {
		t.Fatalf("Len() = %d, %d, want 3, 3", a.Len(), b.Len())
	}

	// Sorted lexicographically, contiguous from 0.
	for i, want := range []string{"user1", "user2", "user3"} {
		gotA, err := a.ToIndex(want)
		if err != nil {
			t.Fatalf("ToIndex(%q) error = %v", want, err)
		}
		gotB, _ := b.ToIndex(want)
		if gotA != i || gotB != i {
			t.Errorf("index of %q = %d, %d, want %d", want, gotA, gotB, i)
		}
		id, ok := a.FromIndex(i)
		if !ok || id != want {
			t.Errorf("FromIndex(%d) = %q, %v, want %q", i, id, ok, want)
		}
	}
}

func TestBuildIndex_UnknownIdentifier(t *testing.T) {
	ix := BuildIndex([]string{"book1", "book2"})

	_, err := ix.ToIndex("book999")
	if err == nil {
		t.Fatal("ToIndex(unknown) error = nil, want cold-start error")
	}
	if !core.IsColdStart(err) {
		t.Errorf("IsColdStart(%v) = false, want true", err)
	}

	if _, ok := ix.FromIndex(99); ok {
		t.Error("FromIndex(99) ok = true, want false")
	}
}

func TestBuild_OverwriteSemantics(t *testing.T) {
	now := time.Now()
	interactions := []core.Interaction{
		{UserID: "u1", ItemID: "b1", Weight: 1.0, Timestamp: now},
		{UserID: "u1", ItemID: "b1", Weight: 2.0, Timestamp: now},
	}

	m, users, items, err := Build(interactions)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ui, _ := users.ToIndex("u1")
	ii, _ := items.ToIndex("b1")
	if got := m.Get(ui, ii); got != 2.0 {
		t.Errorf("cell = %v, want 2.0 (last write wins, not 3.0)", got)
	}
	if m.NNZ() != 1 {
		t.Errorf("NNZ() = %d, want 1", m.NNZ())
	}
}

func TestBuild_DefaultWeight(t *testing.T) {
	m, users, items, err := Build([]core.Interaction{
		{UserID: "u1", ItemID: "b1"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ui, _ := users.ToIndex("u1")
	ii, _ := items.ToIndex("b1")
	if got := m.Get(ui, ii); got != 1.0 {
		t.Errorf("cell = %v, want implicit feedback 1.0", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	_, _, _, err := Build(nil)
	if !core.IsInsufficientData(err) {
		t.Errorf("Build(nil) error = %v, want INSUFFICIENT_DATA", err)
	}
}

func TestSparse_ToDense(t *testing.T) {
	m := NewSparse(2, 3)
	m.Set(0, 1, 0.5)
	m.Set(1, 2, 2.0)

	d := m.ToDense()
	r, c := d.Dims()
	if r != 2 || c != 3 {
		t.Fatalf("Dims() = %d, %d, want 2, 3", r, c)
	}
	if d.At(0, 1) != 0.5 || d.At(1, 2) != 2.0 || d.At(0, 0) != 0 {
		t.Errorf("dense values mismatch: %v %v %v", d.At(0, 1), d.At(1, 2), d.At(0, 0))
	}
}
