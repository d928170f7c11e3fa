package hybrid

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pythonvista/intelligent-libary/core"
)

// ModelScores 是单个物品在各召回模型下的得分。
// 固定形状的结构体而不是嵌套 map：每个算法一个字段，
// 缺席即零值，读取方无需判空。
type ModelScores struct {
	SVD   float64 `json:"svd"`
	NMF   float64 `json:"nmf"`
	TFIDF float64 `json:"tfidf"`
}

// Weights 是混合加权的权重配置。
type Weights struct {
	SVD      float64 `json:"svd" yaml:"svd"`
	NMF      float64 `json:"nmf" yaml:"nmf"`
	TFIDF    float64 `json:"tfidf" yaml:"tfidf"`
	Temporal float64 `json:"temporal" yaml:"temporal"`
}

// DefaultWeights 返回默认混合权重。
func DefaultWeights() Weights {
	return Weights{SVD: 0.35, NMF: 0.30, TFIDF: 0.25, Temporal: 0.10}
}

// Explanation 是单个物品的推荐解释。
type Explanation struct {
	ItemID     string      `json:"item_id"`
	Scores     ModelScores `json:"scores"`
	Blended    float64     `json:"blended"`
	Reasons    []string    `json:"reasons"`
	Confidence float64     `json:"confidence"`
}

// Blender 是多模型混合器：按实验变体路由到单一模型，
// 或将多路召回的得分线性加权后统一排序。
//
// 设计原则：
//   - 单模型变体是直通：该模型的输出原样即结果
//   - hybrid 变体合并候选集；未召回某物品的模型按 0 分参与加权
//   - 可恢复错误（冷启动/未训练）吸收为该路空召回，不使整个请求失败
type Blender struct {
	SVD   core.Recommender
	NMF   core.Recommender
	TFIDF core.ContentRecommender

	// Temporal 可选的时效打分函数；nil 时时效项按 0 参与加权。
	Temporal func(itemID string) float64

	// Weights 混合权重；零值回落到默认。
	Weights Weights

	Logger zerolog.Logger
}

func (b *Blender) weights() Weights {
	if (b.Weights == Weights{}) {
		return DefaultWeights()
	}
	return b.Weights
}

func (b *Blender) temporalScore(itemID string) float64 {
	if b.Temporal == nil {
		return 0
	}
	return b.Temporal(itemID)
}

// Rank 根据请求上下文生成排序后的推荐列表。
// 变体为单一模型名时直通该模型；为 hybrid 时多路召回加权融合。
// 用户历史与显式排除都不会出现在结果中。
func (b *Blender) Rank(rctx *core.RecommendContext) ([]*core.ScoredItem, error) {
	exclude := make([]string, 0, len(rctx.Exclude)+len(rctx.History))
	exclude = append(exclude, rctx.Exclude...)
	exclude = append(exclude, rctx.History...)

	switch rctx.Variant {
	case "svd":
		return b.single(b.SVD, rctx, exclude)
	case "nmf":
		return b.single(b.NMF, rctx, exclude)
	case "tfidf":
		items, err := b.TFIDF.PredictByHistory(rctx.History, rctx.N, rctx.Exclude)
		if err != nil {
			if core.IsRecoverable(err) {
				return nil, nil
			}
			return nil, err
		}
		return items, nil
	case "hybrid":
		return b.blend(rctx, exclude)
	}
	return nil, core.NewDomainError(core.ModuleHybrid, core.ErrorCodeNotSupported,
		"hybrid: unknown variant "+rctx.Variant)
}

func (b *Blender) single(model core.Recommender, rctx *core.RecommendContext, exclude []string) ([]*core.ScoredItem, error) {
	items, err := model.Predict(rctx.UserID, rctx.N, exclude)
	if err != nil {
		if core.IsRecoverable(err) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

// blend 多路召回并线性加权。候选集取各模型 TopN 的并集，
// 每个模型为每个候选提供一个分数（未召回按 0），融合分为：
//
//	w.SVD·s.SVD + w.NMF·s.NMF + w.TFIDF·s.TFIDF + w.Temporal·temporal(id)
//
// 融合分降序；同分按候选首次出现的顺序，保证可复现。
func (b *Blender) blend(rctx *core.RecommendContext, exclude []string) ([]*core.ScoredItem, error) {
	// 每路多取一倍候选，给融合排序留出重排空间。
	nCand := 0
	if rctx.N > 0 {
		nCand = 2 * rctx.N
	}

	order := make([]string, 0, 3*nCand)
	scores := make(map[string]*ModelScores)
	labels := make(map[string][]*core.ScoredItem)

	collect := func(items []*core.ScoredItem, err error, assign func(*ModelScores, float64)) error {
		if err != nil {
			if core.IsRecoverable(err) {
				return nil
			}
			return err
		}
		for _, it := range items {
			ms, ok := scores[it.ID]
			if !ok {
				ms = &ModelScores{}
				scores[it.ID] = ms
				order = append(order, it.ID)
			}
			assign(ms, it.Score)
			labels[it.ID] = append(labels[it.ID], it)
		}
		return nil
	}

	svdItems, svdErr := b.SVD.Predict(rctx.UserID, nCand, exclude)
	if err := collect(svdItems, svdErr, func(ms *ModelScores, s float64) { ms.SVD = s }); err != nil {
		return nil, err
	}
	nmfItems, nmfErr := b.NMF.Predict(rctx.UserID, nCand, exclude)
	if err := collect(nmfItems, nmfErr, func(ms *ModelScores, s float64) { ms.NMF = s }); err != nil {
		return nil, err
	}
	cntItems, cntErr := b.TFIDF.PredictByHistory(rctx.History, nCand, rctx.Exclude)
	if err := collect(cntItems, cntErr, func(ms *ModelScores, s float64) { ms.TFIDF = s }); err != nil {
		return nil, err
	}

	w := b.weights()
	blended := make(map[string]float64, len(order))
	for _, id := range order {
		ms := scores[id]
		blended[id] = w.SVD*ms.SVD + w.NMF*ms.NMF + w.TFIDF*ms.TFIDF +
			w.Temporal*b.temporalScore(id)
	}

	ranked := append([]string(nil), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return blended[ranked[i]] > blended[ranked[j]]
	})
	if rctx.N > 0 && len(ranked) > rctx.N {
		ranked = ranked[:rctx.N]
	}

	out := make([]*core.ScoredItem, 0, len(ranked))
	for _, id := range ranked {
		it := core.NewScoredItem(id)
		it.Score = blended[id]
		it.Algorithm = "hybrid"
		for _, src := range labels[id] {
			for k, lbl := range src.Labels {
				it.PutLabel(k, lbl)
			}
		}
		out = append(out, it)
	}
	return out, nil
}

// Explain 计算指定物品在各模型下的得分与融合分，并生成人可读的理由。
// 只有严格正分的模型才产出理由；置信度是正分的均值，无正分时为 0。
func (b *Blender) Explain(userID string, history []string, itemID string) (*Explanation, error) {
	var ms ModelScores

	find := func(items []*core.ScoredItem, err error) (float64, error) {
		if err != nil {
			if core.IsRecoverable(err) {
				return 0, nil
			}
			return 0, err
		}
		for _, it := range items {
			if it.ID == itemID {
				return it.Score, nil
			}
		}
		return 0, nil
	}

	var err error
	if ms.SVD, err = find(b.SVD.Predict(userID, 0, nil)); err != nil {
		return nil, err
	}
	if ms.NMF, err = find(b.NMF.Predict(userID, 0, nil)); err != nil {
		return nil, err
	}
	if ms.TFIDF, err = find(b.TFIDF.PredictByHistory(history, 0, nil)); err != nil {
		return nil, err
	}

	w := b.weights()
	exp := &Explanation{
		ItemID: itemID,
		Scores: ms,
		Blended: w.SVD*ms.SVD + w.NMF*ms.NMF + w.TFIDF*ms.TFIDF +
			w.Temporal*b.temporalScore(itemID),
	}

	var sum float64
	var positive int
	addReason := func(score float64, reason string) {
		if score <= 0 {
			return
		}
		exp.Reasons = append(exp.Reasons, fmt.Sprintf("%s (score %.3f)", reason, score))
		sum += score
		positive++
	}
	addReason(ms.SVD, "users with similar borrowing patterns liked this")
	addReason(ms.NMF, "matches latent interest groups in your borrowing history")
	addReason(ms.TFIDF, "content is similar to books you have read")
	if positive > 0 {
		exp.Confidence = sum / float64(positive)
	}
	return exp, nil
}
