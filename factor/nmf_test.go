package factor

import (
	"testing"

	"github.com/pythonvista/intelligent-libary/core"
)

func TestNMF_Predict(t *testing.T) {
	r := &NMFRecommender{Components: 2, MaxIter: 100}
	if err := r.Fit(seedInteractions()); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !r.Trained() {
		t.Fatal("model not marked trained after Fit")
	}

	got, err := r.Predict("u1", 3, []string{"a"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("len = %d, want 1..3", len(got))
	}
	for i, it := range got {
		if it.ID == "a" {
			t.Error("excluded item a present")
		}
		if it.Algorithm != "nmf" {
			t.Errorf("algorithm = %q, want nmf", it.Algorithm)
		}
		if i > 0 && got[i-1].Score < it.Score {
			t.Errorf("scores not descending at %d", i)
		}
	}

	if _, err := r.Predict("stranger", 3, nil); !core.IsColdStart(err) {
		t.Errorf("Predict(unknown user) error = %v, want cold start", err)
	}
}

func TestNMF_Reproducible(t *testing.T) {
	fit := func() []*core.ScoredItem {
		r := &NMFRecommender{Components: 2, MaxIter: 50, Seed: 7}
		if err := r.Fit(seedInteractions()); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		got, err := r.Predict("u1", 4, nil)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		return got
	}

	first, second := fit(), fit()
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Score != second[i].Score {
			t.Errorf("run mismatch at %d: {%s %v} vs {%s %v}",
				i, first[i].ID, first[i].Score, second[i].ID, second[i].Score)
		}
	}
}

func TestNMF_NonNegativeFactors(t *testing.T) {
	r := &NMFRecommender{Components: 2, MaxIter: 100}
	if err := r.Fit(seedInteractions()); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	blob, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	st, err := decodeState("nmf", blob)
	if err != nil {
		t.Fatalf("decodeState() error = %v", err)
	}

	for i, row := range st.userFactors {
		for f, v := range row {
			if v < 0 {
				t.Errorf("userFactors[%d][%d] = %v, want >= 0", i, f, v)
			}
		}
	}
	for j, row := range st.itemFactors {
		for f, v := range row {
			if v < 0 {
				t.Errorf("itemFactors[%d][%d] = %v, want >= 0", j, f, v)
			}
		}
	}
}

func TestNMF_IterationCap(t *testing.T) {
	// One iteration is a legal configuration: the loop must terminate and
	// publish whatever factors it reached.
	r := &NMFRecommender{Components: 2, MaxIter: 1}
	if err := r.Fit(seedInteractions()); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !r.Trained() {
		t.Error("Trained() = false after capped fit")
	}
}

func TestNMF_RankClamp(t *testing.T) {
	// Requested components exceed what the matrix admits; both sides of the
	// factorization must come out with min(users, items)-1 dimensions.
	r := &NMFRecommender{Components: 10, MaxIter: 20}
	interactions := []core.Interaction{
		{UserID: "u1", ItemID: "a"},
		{UserID: "u1", ItemID: "b"},
		{UserID: "u2", ItemID: "b"},
		{UserID: "u2", ItemID: "c"},
		{UserID: "u3", ItemID: "c"},
		{UserID: "u3", ItemID: "d"},
	}
	if err := r.Fit(interactions); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	blob, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	st, err := decodeState("nmf", blob)
	if err != nil {
		t.Fatalf("decodeState() error = %v", err)
	}

	// 3 users x 4 items: rank must clamp to min(3,4)-1 = 2.
	if got := len(st.userFactors[0]); got != 2 {
		t.Errorf("user factor dims = %d, want 2", got)
	}
	if got := len(st.itemFactors[0]); got != 2 {
		t.Errorf("item factor dims = %d, want 2", got)
	}
}

func TestNMF_FitEmpty(t *testing.T) {
	r := &NMFRecommender{}
	if err := r.Fit(nil); !core.IsInsufficientData(err) {
		t.Errorf("Fit(nil) error = %v, want INSUFFICIENT_DATA", err)
	}
}
