package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pythonvista/intelligent-libary/abtest"
	"github.com/pythonvista/intelligent-libary/analyzer"
	"github.com/pythonvista/intelligent-libary/config"
	"github.com/pythonvista/intelligent-libary/content"
	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/factor"
	"github.com/pythonvista/intelligent-libary/filter"
	"github.com/pythonvista/intelligent-libary/hybrid"
	"github.com/pythonvista/intelligent-libary/temporal"
)

// trendingKey 是热门榜单在 KeyValueStore 中的 zset key。
const trendingKey = "trending:books"

// Engine 是推荐引擎的编排层：持有全部模型、实验框架与过滤器，
// 对外提供训练与查询入口。
//
// 并发模型：
//   - 各模型训练态通过 atomic 指针发布，Train 与查询可并发
//   - 实验计数全程 atomic
//   - Engine 本身训练完成后无锁服务
type Engine struct {
	cfg *config.Config
	log zerolog.Logger

	svd      *factor.SVDRecommender
	nmf      *factor.NMFRecommender
	tfidf    *content.TFIDFRecommender
	temporal *temporal.Engine
	blender  *hybrid.Blender
	ab       *abtest.Framework
	filters  []filter.Filter
	analyzer analyzer.Analyzer

	source    core.DataSource
	snapshots core.SnapshotStore
	kv        core.KeyValueStore
	clock     func() time.Time

	books    atomic.Pointer[map[string]core.Book]
	trending atomic.Pointer[trendingState]
}

type trendingState struct {
	items  []*core.ScoredItem
	scores map[string]float64
}

// Option 配置 Engine 的可选依赖。
type Option func(*Engine)

// WithLogger 设置结构化日志器。
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithSnapshotStore 设置模型快照仓库，启用 SaveModels/LoadModels。
func WithSnapshotStore(s core.SnapshotStore) Option {
	return func(e *Engine) { e.snapshots = s }
}

// WithKeyValueStore 设置 KV 存储，启用热门榜单的跨实例发布。
func WithKeyValueStore(kv core.KeyValueStore) Option {
	return func(e *Engine) { e.kv = kv }
}

// WithClock 注入时钟（测试用）。
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New 创建引擎。配置在此处一次性校验，非法配置直接拒绝。
func New(source core.DataSource, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		log:    zerolog.Nop(),
		source: source,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.svd = &factor.SVDRecommender{
		Components: cfg.SVD.Components,
		Logger:     e.log,
	}
	e.nmf = &factor.NMFRecommender{
		Components: cfg.NMF.Components,
		MaxIter:    cfg.NMF.MaxIter,
		Tol:        cfg.NMF.Tol,
		Seed:       cfg.NMF.Seed,
		Logger:     e.log,
	}
	e.tfidf = &content.TFIDFRecommender{
		MaxFeatures:    cfg.TFIDF.MaxFeatures,
		MinDocCount:    cfg.TFIDF.MinDocCount,
		MaxDocFraction: cfg.TFIDF.MaxDocFraction,
		Logger:         e.log,
	}
	e.temporal = &temporal.Engine{
		DecayFactor: cfg.Temporal.DecayFactor,
		WindowDays:  cfg.Temporal.WindowDays,
	}

	ab, err := abtest.New(cfg.ABTest.Variants, cfg.ABTest.DefaultVariant)
	if err != nil {
		return nil, err
	}
	e.ab = ab

	e.blender = &hybrid.Blender{
		SVD:      e.svd,
		NMF:      e.nmf,
		TFIDF:    e.tfidf,
		Temporal: e.trendScore,
		Weights:  cfg.Hybrid,
		Logger:   e.log,
	}

	for _, expr := range cfg.FilterRules {
		rule, err := filter.NewRule(expr, e.lookupBook)
		if err != nil {
			return nil, err
		}
		e.filters = append(e.filters, rule)
	}

	return e, nil
}

// AddFilter 追加一个过滤器（构造后、服务前调用）。
func (e *Engine) AddFilter(f filter.Filter) {
	e.filters = append(e.filters, f)
}

func (e *Engine) lookupBook(itemID string) (core.Book, bool) {
	books := e.books.Load()
	if books == nil {
		return core.Book{}, false
	}
	b, ok := (*books)[itemID]
	return b, ok
}

func (e *Engine) trendScore(itemID string) float64 {
	st := e.trending.Load()
	if st == nil {
		return 0
	}
	return st.scores[itemID]
}

// Train 全量训练全部模型：拉取数据后并行拟合 SVD/NMF/TFIDF，
// 同时重算热门榜单并发布书目元数据。任一模型失败则整体返回失败，
// 但已成功发布的其他模型训练态保持可服务。
func (e *Engine) Train(ctx context.Context) error {
	start := e.clock()

	interactions, err := e.source.Interactions(ctx)
	if err != nil {
		return err
	}
	books, err := e.source.Books(ctx)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return e.svd.Fit(interactions) })
	g.Go(func() error { return e.nmf.Fit(interactions) })
	g.Go(func() error { return e.tfidf.Fit(books) })
	g.Go(func() error {
		e.refreshTrending(interactions)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// 书目元数据与模型训练态同批发布：训练失败则两者都保持旧值。
	byID := make(map[string]core.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	e.books.Store(&byID)

	if e.kv != nil {
		if err := e.PublishTrending(ctx); err != nil {
			e.log.Warn().Err(err).Msg("publish trending failed")
		}
	}

	e.log.Info().
		Int("interactions", len(interactions)).
		Int("books", len(books)).
		Dur("elapsed", time.Since(start)).
		Msg("all models trained")
	return nil
}

// TrainModel 只训练一个模型（svd / nmf / tfidf / temporal）。
func (e *Engine) TrainModel(ctx context.Context, name string) error {
	switch name {
	case "svd", "nmf":
		interactions, err := e.source.Interactions(ctx)
		if err != nil {
			return err
		}
		if name == "svd" {
			return e.svd.Fit(interactions)
		}
		return e.nmf.Fit(interactions)
	case "tfidf":
		books, err := e.source.Books(ctx)
		if err != nil {
			return err
		}
		if err := e.tfidf.Fit(books); err != nil {
			return err
		}
		byID := make(map[string]core.Book, len(books))
		for _, b := range books {
			byID[b.ID] = b
		}
		e.books.Store(&byID)
		return nil
	case "temporal":
		interactions, err := e.source.Interactions(ctx)
		if err != nil {
			return err
		}
		e.refreshTrending(interactions)
		return nil
	}
	return core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
		"engine: unknown model "+name)
}

func (e *Engine) refreshTrending(interactions []core.Interaction) {
	items := e.temporal.Trending(interactions, 0, e.clock())
	scores := make(map[string]float64, len(items))
	for _, it := range items {
		scores[it.ID] = it.Score
	}
	e.trending.Store(&trendingState{items: items, scores: scores})
}

// Recommend 为用户生成推荐：按确定性哈希分配实验变体，
// 路由到对应模型，应用过滤规则，并为该变体恰好记录一次曝光。
// 返回结果列表与实际使用的变体。
func (e *Engine) Recommend(ctx context.Context, userID string, n int, exclude []string) ([]*core.ScoredItem, string, error) {
	return e.RecommendVariant(ctx, userID, "", n, exclude)
}

// RecommendVariant 同 Recommend，但允许显式指定变体；
// variant 为空时使用哈希分配的变体。
func (e *Engine) RecommendVariant(ctx context.Context, userID, variant string, n int, exclude []string) ([]*core.ScoredItem, string, error) {
	if variant == "" {
		variant = e.ab.AssignVariant(userID)
	} else if !e.ab.Contains(variant) {
		return nil, "", core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
			"engine: unknown variant "+variant)
	}

	history, err := e.source.UserHistory(ctx, userID)
	if err != nil {
		// 历史拉取失败降级为空历史：协同侧仍可服务
		e.log.Warn().Err(err).Str("user", userID).Msg("user history unavailable")
		history = nil
	}

	rctx := &core.RecommendContext{
		UserID:  userID,
		History: history,
		N:       n,
		Exclude: exclude,
		Variant: variant,
	}

	items, err := e.blender.Rank(rctx)
	if err != nil {
		return nil, "", err
	}
	items = filter.Apply(ctx, rctx, e.filters, items)
	if n > 0 && len(items) > n {
		items = items[:n]
	}

	// 一次下发恰好一次曝光，空列表同样计入（它也是一次实验观测）
	if err := e.ab.RecordImpression(variant); err != nil {
		return nil, "", err
	}
	return items, variant, nil
}

// SimilarItems 返回与指定书目最相似的 n 本书（内容模型）。
func (e *Engine) SimilarItems(itemID string, n int) ([]*core.ScoredItem, error) {
	return e.tfidf.SimilarItems(itemID, n)
}

// Trending 返回当前热门榜单的前 n 项（训练期按时间衰减聚合）。
func (e *Engine) Trending(n int) []*core.ScoredItem {
	st := e.trending.Load()
	if st == nil {
		return nil
	}
	items := st.items
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

// PublishTrending 把热门榜单分数发布到 KV 存储的 zset，供其他实例读取。
func (e *Engine) PublishTrending(ctx context.Context) error {
	if e.kv == nil {
		return core.ErrStoreNotSupported
	}
	st := e.trending.Load()
	if st == nil {
		return nil
	}
	for _, it := range st.items {
		if err := e.kv.ZAdd(ctx, trendingKey, it.Score, it.ID); err != nil {
			return err
		}
	}
	return nil
}

// Explain 解释某本书为何被推荐给某用户：各模型得分、融合分与人可读理由。
func (e *Engine) Explain(ctx context.Context, userID, itemID string) (*hybrid.Explanation, error) {
	history, err := e.source.UserHistory(ctx, userID)
	if err != nil {
		history = nil
	}
	return e.blender.Explain(userID, history, itemID)
}

// AnalyzeBook 对一本已知书目做启发式文本分析。
func (e *Engine) AnalyzeBook(itemID string) (*analyzer.Report, error) {
	b, ok := e.lookupBook(itemID)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
			"engine: unknown book "+itemID)
	}
	return e.analyzer.AnalyzeBook(b), nil
}

// TopTerms 返回一本书内容向量中权重最高的 n 个词。
func (e *Engine) TopTerms(itemID string, n int) ([]core.Term, error) {
	return e.tfidf.TopTerms(itemID, n)
}

// AssignVariant 返回用户的实验变体（确定性，幂等）。
func (e *Engine) AssignVariant(userID string) string {
	return e.ab.AssignVariant(userID)
}

// RecordEvent 记录一次实验反馈事件（impression / click / conversion）。
func (e *Engine) RecordEvent(kind, variant string) error {
	k, err := abtest.ParseEventKind(kind)
	if err != nil {
		return err
	}
	return e.ab.Record(k, variant)
}

// Performance 返回各变体的实验效果指标。
func (e *Engine) Performance() map[string]abtest.Performance {
	return e.ab.Performance()
}

// WinningVariant 返回当前转化率最高的变体；无数据时为默认变体。
func (e *Engine) WinningVariant() string {
	return e.ab.WinningVariant()
}

// Experiments 返回实验框架（供指标采集器注册等）。
func (e *Engine) Experiments() *abtest.Framework {
	return e.ab
}

// snapshotters 返回全部支持持久化的模型。
func (e *Engine) snapshotters() map[string]core.Snapshotter {
	return map[string]core.Snapshotter{
		e.svd.Name():   e.svd,
		e.nmf.Name():   e.nmf,
		e.tfidf.Name(): e.tfidf,
	}
}

// SaveModels 把全部已训练模型的快照写入快照仓库。
// 未训练的模型跳过，不算失败。
func (e *Engine) SaveModels(ctx context.Context) error {
	if e.snapshots == nil {
		return core.ErrStoreNotSupported
	}
	for name, s := range e.snapshotters() {
		blob, err := s.Snapshot()
		if err != nil {
			if core.IsNotTrained(err) {
				continue
			}
			return err
		}
		if err := e.snapshots.SaveSnapshot(ctx, name, blob); err != nil {
			return err
		}
		e.log.Info().Str("model", name).Int("bytes", len(blob)).Msg("model snapshot saved")
	}
	return nil
}

// LoadModels 从快照仓库恢复全部模型的训练态。
// 仓库中缺席的模型跳过；损坏的快照返回失败。
func (e *Engine) LoadModels(ctx context.Context) error {
	if e.snapshots == nil {
		return core.ErrStoreNotSupported
	}
	for name, s := range e.snapshotters() {
		blob, err := e.snapshots.LoadSnapshot(ctx, name)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return err
		}
		if err := s.Restore(blob); err != nil {
			return err
		}
		e.log.Info().Str("model", name).Msg("model snapshot restored")
	}
	return nil
}
