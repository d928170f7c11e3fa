package factor

import (
	"bytes"
	"encoding/gob"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/matrix"
	"github.com/pythonvista/intelligent-libary/pkg/utils"
)

// state 是一次因子分解产出的不可变训练态。
// SVD / NMF 共享同一结构：两侧索引 + 两侧因子行。
// 通过 atomic.Pointer 整体发布，预测只读。
type state struct {
	users       *matrix.Index
	items       *matrix.Index
	userFactors [][]float64 // 按用户下标，k 维
	itemFactors [][]float64 // 按物品下标，k 维
	trainedAt   time.Time
}

// predict 为用户生成 TopN：用户因子与全部物品因子做余弦相似度，
// 去除 exclude，分数降序（同分按物品下标序），截断到 n。
func (st *state) predict(algorithm, userID string, n int, exclude []string) ([]*core.ScoredItem, error) {
	ui, err := st.users.ToIndex(userID)
	if err != nil {
		return nil, err
	}
	uf := st.userFactors[ui]

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	type cand struct {
		idx   int
		score float64
	}
	cands := make([]cand, 0, st.items.Len())
	for i := 0; i < st.items.Len(); i++ {
		id, _ := st.items.FromIndex(i)
		if _, ok := skip[id]; ok {
			continue
		}
		cands = append(cands, cand{idx: i, score: cosine(uf, st.itemFactors[i])})
	}

	sort.Slice(cands, func(a, b int) bool {
		if cands[a].score != cands[b].score {
			return cands[a].score > cands[b].score
		}
		return cands[a].idx < cands[b].idx
	})
	if n > 0 && len(cands) > n {
		cands = cands[:n]
	}

	out := make([]*core.ScoredItem, 0, len(cands))
	for _, c := range cands {
		id, _ := st.items.FromIndex(c.idx)
		it := core.NewScoredItem(id)
		it.Score = c.score
		it.Algorithm = algorithm
		it.PutLabel("recall_source", utils.Label{Value: algorithm, Source: "factor"})
		it.PutLabel("similarity", utils.Label{
			Value:  strconv.FormatFloat(c.score, 'f', 4, 64),
			Source: "factor",
		})
		out = append(out, it)
	}
	return out, nil
}

// cosine 计算两个因子向量的余弦相似度；任一侧零范数时为 0。
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// factorSnapshot 是因子训练态的持久化编码。标识符按下标序存储，
// 构建时已字典序排列，恢复时重建出同一映射。
type factorSnapshot struct {
	Algorithm   string
	UserIDs     []string
	ItemIDs     []string
	UserFactors [][]float64
	ItemFactors [][]float64
	TrainedAt   time.Time
}

// encodeState 将训练态编码为 gob blob。
func encodeState(algorithm string, st *state) ([]byte, error) {
	if st == nil {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeNotTrained,
			"factor: "+algorithm+" model not trained")
	}

	var buf bytes.Buffer
	snap := factorSnapshot{
		Algorithm:   algorithm,
		UserIDs:     st.users.IDs(),
		ItemIDs:     st.items.IDs(),
		UserFactors: st.userFactors,
		ItemFactors: st.itemFactors,
		TrainedAt:   st.trainedAt,
	}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeTrainingFailed,
			"factor: encode snapshot: "+err.Error())
	}
	return buf.Bytes(), nil
}

// decodeState 从 gob blob 恢复训练态，并校验算法归属与形状一致性。
func decodeState(algorithm string, blob []byte) (*state, error) {
	var snap factorSnapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeTrainingFailed,
			"factor: decode snapshot: "+err.Error())
	}
	if snap.Algorithm != algorithm {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeNotSupported,
			"factor: snapshot belongs to "+snap.Algorithm+", not "+algorithm)
	}
	if len(snap.UserFactors) != len(snap.UserIDs) || len(snap.ItemFactors) != len(snap.ItemIDs) {
		return nil, core.NewDomainError(core.ModuleFactor, core.ErrorCodeTrainingFailed,
			"factor: snapshot factor count does not match identifier count")
	}

	return &state{
		users:       matrix.BuildIndex(snap.UserIDs),
		items:       matrix.BuildIndex(snap.ItemIDs),
		userFactors: snap.UserFactors,
		itemFactors: snap.ItemFactors,
		trainedAt:   snap.TrainedAt,
	}, nil
}

// clampRank 将请求的因子维数收敛到可分解范围内。
func clampRank(requested, maxRank int) int {
	k := requested
	if k > maxRank {
		k = maxRank
	}
	if k < 1 {
		k = 1
	}
	return k
}
