package factor

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/matrix"
)

// nmfEpsilon 防止乘法更新的分母为零。
const nmfEpsilon = 1e-10

// NMFRecommender 是基于非负矩阵分解的协同过滤模型。
//
// 核心思想：
//   - 交互矩阵 M ≈ W·Hᵀ，W、H 全程非负
//   - 乘法更新规则迭代逼近，Frobenius 误差变化小于 Tol 时提前收敛
//   - 达到 MaxIter 未收敛不是错误：当前因子照常发布
//
// 初始化用固定种子的伪随机数，同一数据同一配置产出同一分解。
type NMFRecommender struct {
	// Components 因子维数；0 表示默认 30。
	Components int

	// MaxIter 迭代上限；0 表示默认 200。
	MaxIter int

	// Tol 相对误差收敛阈值；0 表示默认 1e-4。
	Tol float64

	// Seed 初始化种子；0 表示默认 42。
	Seed int64

	Logger zerolog.Logger

	state atomic.Pointer[state]
}

func (r *NMFRecommender) components() int {
	if r.Components <= 0 {
		return 30
	}
	return r.Components
}

func (r *NMFRecommender) maxIter() int {
	if r.MaxIter <= 0 {
		return 200
	}
	return r.MaxIter
}

func (r *NMFRecommender) tol() float64 {
	if r.Tol <= 0 {
		return 1e-4
	}
	return r.Tol
}

func (r *NMFRecommender) seed() int64 {
	if r.Seed == 0 {
		return 42
	}
	return r.Seed
}

// Name 返回算法名。
func (r *NMFRecommender) Name() string { return "nmf" }

// Trained 返回是否已有可服务的训练态。
func (r *NMFRecommender) Trained() bool { return r.state.Load() != nil }

// TrainedAt 返回当前训练态的产出时间。
func (r *NMFRecommender) TrainedAt() time.Time {
	if st := r.state.Load(); st != nil {
		return st.trainedAt
	}
	return time.Time{}
}

// Fit 用一批交互记录全量重建因子，完成后原子发布。
// 失败时旧训练态保持不变。
func (r *NMFRecommender) Fit(interactions []core.Interaction) error {
	start := time.Now()

	sm, users, items, err := matrix.Build(interactions)
	if err != nil {
		return err
	}

	nU, nI := sm.Dims()
	minDim := nU
	if nI < minDim {
		minDim = nI
	}
	k := clampRank(r.components(), minDim-1)

	m := sm.ToDense()

	// 非负随机初始化，固定种子保证可复现。
	rnd := rand.New(rand.NewSource(r.seed()))
	w := mat.NewDense(nU, k, nil)
	h := mat.NewDense(nI, k, nil)
	for i := 0; i < nU; i++ {
		for f := 0; f < k; f++ {
			w.Set(i, f, 0.01+rnd.Float64())
		}
	}
	for j := 0; j < nI; j++ {
		for f := 0; f < k; f++ {
			h.Set(j, f, 0.01+rnd.Float64())
		}
	}

	addEps := func(_, _ int, v float64) float64 { return v + nmfEpsilon }

	iters := 0
	prevErr := math.Inf(1)
	for iter := 0; iter < r.maxIter(); iter++ {
		iters = iter + 1

		// H ← H ∘ (MᵀW) ⊘ (H·WᵀW + ε)
		var wtw, num, den mat.Dense
		wtw.Mul(w.T(), w)
		num.Mul(m.T(), w)
		den.Mul(h, &wtw)
		den.Apply(addEps, &den)
		num.DivElem(&num, &den)
		h.MulElem(h, &num)

		// W ← W ∘ (M·H) ⊘ (W·HᵀH + ε)
		var hth, num2, den2 mat.Dense
		hth.Mul(h.T(), h)
		num2.Mul(m, h)
		den2.Mul(w, &hth)
		den2.Apply(addEps, &den2)
		num2.DivElem(&num2, &den2)
		w.MulElem(w, &num2)

		// 每 10 轮检查一次 Frobenius 误差的相对变化。
		if (iter+1)%10 == 0 {
			var res mat.Dense
			res.Mul(w, h.T())
			res.Sub(m, &res)
			cur := mat.Norm(&res, 2)
			if prevErr != math.Inf(1) && math.Abs(prevErr-cur) <= r.tol()*math.Max(prevErr, nmfEpsilon) {
				break
			}
			prevErr = cur
		}
	}

	userFactors := make([][]float64, nU)
	for i := 0; i < nU; i++ {
		userFactors[i] = append([]float64(nil), w.RawRowView(i)...)
	}
	itemFactors := make([][]float64, nI)
	for j := 0; j < nI; j++ {
		itemFactors[j] = append([]float64(nil), h.RawRowView(j)...)
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
		Int("iterations", iters).
		Dur("elapsed", time.Since(start)).
		Msg("nmf model fitted")
	return nil
}

// Predict 为用户生成 TopN；用户未收录或模型未训练是可恢复的冷启动信号。
func (r *NMFRecommender) Predict(userID string, n int, exclude []string) ([]*core.ScoredItem, error) {
	st := r.state.Load()
	if st == nil {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeNotTrained,
			"factor: nmf model not trained")
	}
	return st.predict(r.Name(), userID, n, exclude)
}

// Snapshot 导出当前训练态为 gob blob。
func (r *NMFRecommender) Snapshot() ([]byte, error) {
	return encodeState(r.Name(), r.state.Load())
}

// Restore 从 blob 恢复训练态并原子发布。
func (r *NMFRecommender) Restore(blob []byte) error {
	st, err := decodeState(r.Name(), blob)
	if err != nil {
		return err
	}
	r.state.Store(st)
	return nil
}
