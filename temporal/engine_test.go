package temporal

import (
	"testing"
	"time"

	"github.com/pythonvista/intelligent-libary/core"
)

func TestWeight_Monotonic(t *testing.T) {
	e := &Engine{DecayFactor: 0.95, WindowDays: 90}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	prev := 1.1
	for _, days := range []int{0, 1, 7, 30, 60, 89, 91, 180, 365} {
		w := e.Weight(now.AddDate(0, 0, -days), now)
		if w <= 0 || w > 1 {
			t.Errorf("Weight(%d days) = %v, want in (0,1]", days, w)
		}
		if w > prev {
			t.Errorf("Weight(%d days) = %v > previous %v, want non-increasing", days, w, prev)
		}
		prev = w
	}
}

func TestWeight_WindowDamping(t *testing.T) {
	e := &Engine{DecayFactor: 0.95, WindowDays: 90}
	wide := &Engine{DecayFactor: 0.95, WindowDays: 3650}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -120)

	damped := e.Weight(old, now)
	undamped := wide.Weight(old, now)

	if damped >= undamped {
		t.Errorf("damped = %v, want strictly smaller than undamped %v", damped, undamped)
	}
	// Old interactions are suppressed, never zeroed.
	if damped <= 0 {
		t.Errorf("damped = %v, want > 0", damped)
	}
}

func TestWeight_FutureTimestamp(t *testing.T) {
	e := &Engine{}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if w := e.Weight(now.AddDate(0, 0, 5), now); w != 1.0 {
		t.Errorf("Weight(future) = %v, want 1.0", w)
	}
}

func TestTrending(t *testing.T) {
	e := &Engine{DecayFactor: 0.95, WindowDays: 90}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	interactions := []core.Interaction{
		{UserID: "u1", ItemID: "book2", Timestamp: now.AddDate(0, 0, -1)},
		{UserID: "u2", ItemID: "book2", Timestamp: now.AddDate(0, 0, -2)},
		{UserID: "u3", ItemID: "book1", Timestamp: now.AddDate(0, 0, -40)},
		{UserID: "u4", ItemID: "book3", Timestamp: now.AddDate(0, 0, -200)},
	}

	got := e.Trending(interactions, 2, now)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "book2" {
		t.Errorf("top item = %q, want book2 (two recent interactions)", got[0].ID)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %v, %v", got[0].Score, got[1].Score)
	}
}

func TestTrending_TieBreakByID(t *testing.T) {
	e := &Engine{}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ts := now.AddDate(0, 0, -3)

	got := e.Trending([]core.Interaction{
		{UserID: "u1", ItemID: "bbb", Timestamp: ts},
		{UserID: "u2", ItemID: "aaa", Timestamp: ts},
	}, 0, now)

	if len(got) != 2 || got[0].ID != "aaa" || got[1].ID != "bbb" {
		t.Errorf("tie-break order = %v, want [aaa bbb]", []string{got[0].ID, got[1].ID})
	}
}
