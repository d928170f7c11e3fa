package core

import (
	"context"
	"time"
)

// Recommender 是隐因子模型（SVD / NMF）的统一契约。
//
// 生命周期：
//   - Fit 全量重建训练态；训练期间旧状态保持可读，完成后原子发布
//   - Predict 只读，可与其他模型的训练并发
//
// 冷启动语义：
//   - 用户不在训练期索引 → 返回 ErrorCodeUnknownID 类错误（IsColdStart）
//   - 模型未训练 → 返回 ErrorCodeNotTrained 类错误（IsNotTrained）
//
// 两者都是可恢复信号，调用方吸收为空结果，不作为失败上抛。
type Recommender interface {
	// Name 返回算法名（svd / nmf），同时作为快照 key 与变体名。
	Name() string

	// Fit 用一批交互记录全量训练；失败时旧状态不受影响。
	Fit(interactions []Interaction) error

	// Predict 为用户生成 TopN：按余弦相似度对全部物品打分，
	// 去除 exclude，分数降序（同分按物品索引序），截断到 n。
	Predict(userID string, n int, exclude []string) ([]*ScoredItem, error)

	// Trained 返回模型是否已有可服务的训练态。
	Trained() bool

	// TrainedAt 返回当前训练态的产出时间；未训练时为零值。
	TrainedAt() time.Time
}

// ContentRecommender 是内容相似模型的契约。
type ContentRecommender interface {
	// Name 返回算法名（tfidf）。
	Name() string

	// Fit 用物品元数据全量重建词表与文档向量。
	Fit(books []Book) error

	// PredictByHistory 基于用户历史构建画像向量并生成 TopN。
	// 历史为空或全部未命中词表索引 → 冷启动。
	PredictByHistory(history []string, n int, exclude []string) ([]*ScoredItem, error)

	// SimilarItems 返回与指定物品最相似的 n 个物品（不含其自身）。
	SimilarItems(itemID string, n int) ([]*ScoredItem, error)

	// TopTerms 返回该物品文档向量中权重最高的 n 个词（零权重永不返回）。
	TopTerms(itemID string, n int) ([]Term, error)

	Trained() bool
	TrainedAt() time.Time
}

// Term 是词表中的一个词及其在某文档中的权重。
type Term struct {
	Text   string
	Weight float64
}

// Snapshotter 由支持持久化的模型实现：训练态导出/恢复为不透明 blob。
type Snapshotter interface {
	// Snapshot 导出当前训练态；未训练时返回 NOT_TRAINED 类错误。
	Snapshot() ([]byte, error)

	// Restore 从 blob 恢复训练态并原子发布。
	Restore(blob []byte) error
}

// DataSource 是训练与查询数据的外部协作方（持久层）契约。
// 引擎只通过此接口批量拉取数据，核心内部没有网络/磁盘 I/O。
type DataSource interface {
	// Interactions 批量拉取交互记录（因子模型训练输入）
	Interactions(ctx context.Context) ([]Interaction, error)

	// Books 批量拉取物品元数据（内容模型训练输入）
	Books(ctx context.Context) ([]Book, error)

	// UserHistory 拉取用户的历史物品 ID 列表（内容预测输入）
	UserHistory(ctx context.Context, userID string) ([]string, error)
}
