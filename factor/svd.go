package factor

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/matrix"
)

// SVDRecommender 是基于截断奇异值分解的协同过滤模型。
//
// 核心思想：
//   - 交互矩阵 M ≈ U·Σ·Vᵀ，截断到前 k 个奇异值
//   - 用户因子取 U·Σ 的前 k 列（奇异值加权），物品因子取 V 的前 k 列
//   - 预测即用户因子与物品因子的余弦相似度排序
//
// k 会被收敛到 min(用户数, 物品数) - 1 以内，保证截断分解有效。
type SVDRecommender struct {
	// Components 因子维数；0 表示默认 50。
	Components int

	Logger zerolog.Logger

	state atomic.Pointer[state]
}

func (r *SVDRecommender) components() int {
	if r.Components <= 0 {
		return 50
	}
	return r.Components
}

// Name 返回算法名。
func (r *SVDRecommender) Name() string { return "svd" }

// Trained 返回是否已有可服务的训练态。
func (r *SVDRecommender) Trained() bool { return r.state.Load() != nil }

// TrainedAt 返回当前训练态的产出时间。
func (r *SVDRecommender) TrainedAt() time.Time {
	if st := r.state.Load(); st != nil {
		return st.trainedAt
	}
	return time.Time{}
}

// Fit 用一批交互记录全量重建因子，完成后原子发布。
// 失败时旧训练态保持不变。
func (r *SVDRecommender) Fit(interactions []core.Interaction) error {
	start := time.Now()

	m, users, items, err := matrix.Build(interactions)
	if err != nil {
		return err
	}

	nU, nI := m.Dims()
	minDim := nU
	if nI < minDim {
		minDim = nI
	}
	k := clampRank(r.components(), minDim-1)

	var svd mat.SVD
	if ok := svd.Factorize(m.ToDense(), mat.SVDThin); !ok {
		return core.NewDomainError(core.ModuleFactor, core.ErrorCodeTrainingFailed,
			"factor: svd factorization did not converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	userFactors := make([][]float64, nU)
	for i := 0; i < nU; i++ {
		row := make([]float64, k)
		for f := 0; f < k; f++ {
			row[f] = u.At(i, f) * sigma[f]
		}
		userFactors[i] = row
	}
	itemFactors := make([][]float64, nI)
	for j := 0; j < nI; j++ {
		row := make([]float64, k)
		for f := 0; f < k; f++ {
			row[f] = v.At(j, f)
		}
		itemFactors[j] = row
	}

	r.state.Store(&state{
		users:       users,
		items:       items,
		userFactors: userFactors,
		itemFactors: itemFactors,
		trainedAt:   time.Now(),
	})

	r.Logger.Info().
		Int("users", nU).
		Int("items", nI).
		Int("components", k).
		Int("interactions", len(interactions)).
		Dur("elapsed", time.Since(start)).
		Msg("svd model fitted")
	return nil
}

// Predict 为用户生成 TopN；用户未收录或模型未训练是可恢复的冷启动信号。
func (r *SVDRecommender) Predict(userID string, n int, exclude []string) ([]*core.ScoredItem, error) {
	st := r.state.Load()
	if st == nil {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeNotTrained,
			"factor: svd model not trained")
	}
	return st.predict(r.Name(), userID, n, exclude)
}

// Snapshot 导出当前训练态为 gob blob。
func (r *SVDRecommender) Snapshot() ([]byte, error) {
	return encodeState(r.Name(), r.state.Load())
}

// Restore 从 blob 恢复训练态并原子发布。
func (r *SVDRecommender) Restore(blob []byte) error {
	st, err := decodeState(r.Name(), blob)
	if err != nil {
		return err
	}
	r.state.Store(st)
	return nil
}
