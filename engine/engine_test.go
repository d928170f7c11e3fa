package engine

import (
	"context"
	"testing"
	"time"

	"github.com/pythonvista/intelligent-libary/config"
	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/store"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seedSource() *StaticSource {
	day := func(d int) time.Time { return testNow.AddDate(0, 0, -d) }
	return &StaticSource{
		Catalog: []core.Book{
			{ID: "book1", Title: "Python Programming", Subject: "Computer Science",
				Description: "A practical introduction to python programming", Tags: []string{"python"}},
			{ID: "book2", Title: "Machine Learning with Python", Subject: "Computer Science",
				Description: "Building models in python", Tags: []string{"python", "data"}},
			{ID: "book3", Title: "Data Science Handbook", Subject: "Computer Science",
				Description: "Working with data at scale", Tags: []string{"data"}},
			{ID: "book4", Title: "French Cooking", Subject: "Culinary Arts",
				Description: "Classic french cooking recipes"},
			{ID: "book5", Title: "Italian Cooking", Subject: "Culinary Arts",
				Description: "Italian cooking for every day", Tags: []string{"recipes"}},
		},
		Data: []core.Interaction{
			{UserID: "user1", ItemID: "book1", Weight: 1, Timestamp: day(2)},
			{UserID: "user1", ItemID: "book2", Weight: 2, Timestamp: day(1)},
			{UserID: "user2", ItemID: "book1", Weight: 1, Timestamp: day(5)},
			{UserID: "user2", ItemID: "book2", Weight: 1, Timestamp: day(4)},
			{UserID: "user2", ItemID: "book3", Weight: 3, Timestamp: day(3)},
			{UserID: "user2", ItemID: "book4", Weight: 1, Timestamp: day(40)},
			{UserID: "user3", ItemID: "book3", Weight: 2, Timestamp: day(7)},
			{UserID: "user3", ItemID: "book1", Weight: 1, Timestamp: day(6)},
			{UserID: "user4", ItemID: "book4", Weight: 1, Timestamp: day(10)},
			{UserID: "user4", ItemID: "book5", Weight: 2, Timestamp: day(9)},
			{UserID: "user5", ItemID: "book4", Weight: 1, Timestamp: day(20)},
			{UserID: "user5", ItemID: "book5", Weight: 1, Timestamp: day(15)},
			{UserID: "user5", ItemID: "book1", Weight: 1, Timestamp: day(120)},
		},
	}
}

func trainedEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	e, err := New(seedSource(), config.Default(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return e
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Temporal.DecayFactor = 1.5
	if _, err := New(seedSource(), cfg); !core.IsInvalidConfig(err) {
		t.Errorf("New(bad config) error = %v, want INVALID_CONFIG", err)
	}

	cfg = config.Default()
	cfg.FilterRules = []string{"item.score <"}
	if _, err := New(seedSource(), cfg); !core.IsInvalidConfig(err) {
		t.Errorf("New(bad rule) error = %v, want INVALID_CONFIG", err)
	}
}

func TestRecommend_HybridVariant(t *testing.T) {
	e := trainedEngine(t)

	items, variant, err := e.RecommendVariant(context.Background(), "user1", "hybrid", 3, nil)
	if err != nil {
		t.Fatalf("RecommendVariant() error = %v", err)
	}
	if variant != "hybrid" {
		t.Errorf("variant = %q, want hybrid", variant)
	}
	if len(items) == 0 || len(items) > 3 {
		t.Fatalf("len = %d, want 1..3", len(items))
	}
	for i, it := range items {
		// user1 has read book1 and book2; neither may come back.
		if it.ID == "book1" || it.ID == "book2" {
			t.Errorf("history item %s recommended back to user1", it.ID)
		}
		if i > 0 && items[i-1].Score < it.Score {
			t.Errorf("scores not descending at %d", i)
		}
		if it.Algorithm != "hybrid" {
			t.Errorf("algorithm = %q, want hybrid", it.Algorithm)
		}
	}
}

func TestRecommend_ExplicitExclude(t *testing.T) {
	e := trainedEngine(t)

	items, _, err := e.RecommendVariant(context.Background(), "user1", "hybrid", 5, []string{"book3"})
	if err != nil {
		t.Fatalf("RecommendVariant() error = %v", err)
	}
	for _, it := range items {
		if it.ID == "book3" {
			t.Error("excluded item book3 present in recommendations")
		}
	}
}

func TestRecommend_ImpressionCountedOnce(t *testing.T) {
	e := trainedEngine(t)

	if _, _, err := e.RecommendVariant(context.Background(), "user1", "svd", 3, nil); err != nil {
		t.Fatalf("RecommendVariant() error = %v", err)
	}

	perf := e.Performance()["svd"]
	if perf.Impressions != 1 {
		t.Errorf("impressions = %d, want exactly 1 per served list", perf.Impressions)
	}
}

func TestRecommend_AssignedVariant(t *testing.T) {
	e := trainedEngine(t)

	_, variant, err := e.Recommend(context.Background(), "user2", 3, nil)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if variant != e.AssignVariant("user2") {
		t.Errorf("variant = %q, want the deterministic assignment %q", variant, e.AssignVariant("user2"))
	}

	if _, _, err := e.RecommendVariant(context.Background(), "user2", "bandit", 3, nil); !core.IsNotFound(err) {
		t.Errorf("RecommendVariant(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestRecommend_ColdStartUser(t *testing.T) {
	e := trainedEngine(t)

	// A user with no history anywhere gets an empty list, not an error.
	items, _, err := e.RecommendVariant(context.Background(), "stranger", "hybrid", 3, nil)
	if err != nil {
		t.Fatalf("RecommendVariant(cold user) error = %v, want absorbed cold start", err)
	}
	if len(items) != 0 {
		t.Errorf("cold user got %v, want empty", items)
	}
}

func TestFilterRules(t *testing.T) {
	cfg := config.Default()
	cfg.FilterRules = []string{`item.id == "book3"`}

	e, err := New(seedSource(), cfg, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	items, _, err := e.RecommendVariant(context.Background(), "user1", "hybrid", 5, nil)
	if err != nil {
		t.Fatalf("RecommendVariant() error = %v", err)
	}
	for _, it := range items {
		if it.ID == "book3" {
			t.Error("rule-filtered item book3 present in recommendations")
		}
	}
}

func TestTrending(t *testing.T) {
	e := trainedEngine(t)

	items := e.Trending(2)
	if len(items) != 2 {
		t.Fatalf("Trending(2) len = %d, want 2", len(items))
	}
	if items[0].Score < items[1].Score {
		t.Error("trending scores not descending")
	}
	for _, it := range items {
		if it.Score <= 0 {
			t.Errorf("trending item %s score = %v, want > 0", it.ID, it.Score)
		}
	}
}

func TestPublishTrending(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()

	e := trainedEngine(t, WithKeyValueStore(kv))

	got, err := kv.ZRange(context.Background(), "trending:books", 0, 0)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	if len(got) != 1 || got[0] != e.Trending(1)[0].ID {
		t.Errorf("published top = %v, want %s", got, e.Trending(1)[0].ID)
	}
}

func TestSimilarItems(t *testing.T) {
	e := trainedEngine(t)

	items, err := e.SimilarItems("book1", 3)
	if err != nil {
		t.Fatalf("SimilarItems() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no similar items for book1")
	}
	for _, it := range items {
		if it.ID == "book1" {
			t.Error("SimilarItems contains the query book")
		}
	}
}

func TestExplain(t *testing.T) {
	e := trainedEngine(t)

	exp, err := e.Explain(context.Background(), "user1", "book3")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if exp.ItemID != "book3" {
		t.Errorf("item = %q, want book3", exp.ItemID)
	}
	if exp.Confidence < 0 || exp.Confidence > 1 {
		t.Errorf("confidence = %v, want in [0,1]", exp.Confidence)
	}
}

func TestAnalyzeBook(t *testing.T) {
	e := trainedEngine(t)

	report, err := e.AnalyzeBook("book1")
	if err != nil {
		t.Fatalf("AnalyzeBook() error = %v", err)
	}
	if report.Readability.Level == "unknown" {
		t.Error("readability not computed")
	}

	if _, err := e.AnalyzeBook("ghost"); !core.IsNotFound(err) {
		t.Errorf("AnalyzeBook(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestTopTerms(t *testing.T) {
	e := trainedEngine(t)

	terms, err := e.TopTerms("book1", 5)
	if err != nil {
		t.Fatalf("TopTerms() error = %v", err)
	}
	if len(terms) == 0 {
		t.Error("no top terms for book1")
	}
}

func TestSaveLoadModels(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	snapshots := &store.Snapshots{S: mem}
	ctx := context.Background()

	e := trainedEngine(t, WithSnapshotStore(snapshots))
	if err := e.SaveModels(ctx); err != nil {
		t.Fatalf("SaveModels() error = %v", err)
	}

	// A fresh engine loads the snapshots and serves without retraining.
	fresh, err := New(seedSource(), config.Default(),
		WithSnapshotStore(snapshots),
		WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := fresh.LoadModels(ctx); err != nil {
		t.Fatalf("LoadModels() error = %v", err)
	}

	items, _, err := fresh.RecommendVariant(ctx, "user1", "svd", 3, nil)
	if err != nil {
		t.Fatalf("RecommendVariant() after load error = %v", err)
	}
	if len(items) == 0 {
		t.Error("no recommendations from restored models")
	}
}

func TestSaveModels_NoStore(t *testing.T) {
	e := trainedEngine(t)
	if err := e.SaveModels(context.Background()); err != core.ErrStoreNotSupported {
		t.Errorf("SaveModels() without store error = %v, want ErrStoreNotSupported", err)
	}
}

func TestRecordEventAndWinner(t *testing.T) {
	e := trainedEngine(t)

	if err := e.RecordEvent("impression", "nmf"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := e.RecordEvent("conversion", "nmf"); err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if err := e.RecordEvent("view", "nmf"); !core.IsNotFound(err) {
		t.Errorf("RecordEvent(unknown kind) error = %v, want NOT_FOUND", err)
	}

	if got := e.WinningVariant(); got != "nmf" {
		t.Errorf("WinningVariant() = %q, want nmf", got)
	}
}

func TestTrainModel(t *testing.T) {
	e, err := New(seedSource(), config.Default(), WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := e.TrainModel(ctx, "svd"); err != nil {
		t.Fatalf("TrainModel(svd) error = %v", err)
	}
	items, _, err := e.RecommendVariant(ctx, "user1", "svd", 3, nil)
	if err != nil {
		t.Fatalf("RecommendVariant() error = %v", err)
	}
	if len(items) == 0 {
		t.Error("no recommendations after single-model training")
	}

	if err := e.TrainModel(ctx, "unknown"); !core.IsNotFound(err) {
		t.Errorf("TrainModel(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestTrain_FailureKeepsCatalog(t *testing.T) {
	src := seedSource()
	e, err := New(src, config.Default(), WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := e.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	// Second run fetches a grown catalog but no interactions, so the factor
	// fits fail. A failed run must not publish the new catalog.
	src.Catalog = append(src.Catalog, core.Book{
		ID: "book6", Title: "Spanish Cooking", Subject: "Culinary Arts",
		Description: "Spanish cooking recipes"})
	src.Data = nil

	if err := e.Train(ctx); !core.IsInsufficientData(err) {
		t.Fatalf("Train() error = %v, want INSUFFICIENT_DATA", err)
	}
	if _, err := e.AnalyzeBook("book6"); !core.IsNotFound(err) {
		t.Errorf("AnalyzeBook(book6) error = %v, want NOT_FOUND after failed training", err)
	}
	if _, err := e.AnalyzeBook("book1"); err != nil {
		t.Errorf("AnalyzeBook(book1) error = %v, prior catalog should still serve", err)
	}
}
