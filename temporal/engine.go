package temporal

import (
	"math"
	"sort"
	"time"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/pkg/utils"
)

// outOfWindowDamping 是超出时间窗后的附加抑制因子。
// 旧交互永远不会被清零，只是被强烈压低。
const outOfWindowDamping = 0.1

// Engine 是时间衰减引擎：把交互的新近程度转为 (0,1] 的衰减权重，
// 并基于衰减权重聚合趋势分数。
//
// 零值字段回落到默认：DecayFactor 0.95、WindowDays 90。
type Engine struct {
	// DecayFactor 每 30 天的衰减底数。
	DecayFactor float64

	// WindowDays 时间窗（天）；超窗交互额外乘 outOfWindowDamping。
	WindowDays int
}

func (e *Engine) decayFactor() float64 {
	if e.DecayFactor <= 0 || e.DecayFactor > 1 {
		return 0.95
	}
	return e.DecayFactor
}

func (e *Engine) windowDays() float64 {
	if e.WindowDays <= 0 {
		return 90
	}
	return float64(e.WindowDays)
}

// Weight 计算一次交互在 now 时刻的衰减权重：decay^(days/30)。
// days 随时间单调不增；未来时间戳按 0 天处理。
func (e *Engine) Weight(interactionTime, now time.Time) float64 {
	days := now.Sub(interactionTime).Hours() / 24
	if days < 0 {
		days = 0
	}

	w := math.Pow(e.decayFactor(), days/30)
	if days > e.windowDays() {
		w *= outOfWindowDamping
	}
	return w
}

// Trending 按物品累加全部交互的衰减权重，降序返回前 n 个。
// 同分按物品 id 字典序，保证结果可复现。
func (e *Engine) Trending(interactions []core.Interaction, n int, now time.Time) []*core.ScoredItem {
	scores := make(map[string]float64)
	for _, it := range interactions {
		scores[it.ItemID] += e.Weight(it.Timestamp, now)
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}

	out := make([]*core.ScoredItem, 0, len(ids))
	for _, id := range ids {
		it := core.NewScoredItem(id)
		it.Score = scores[id]
		it.Algorithm = "temporal"
		it.PutLabel("recall_source", utils.Label{Value: "temporal", Source: "temporal"})
		out = append(out, it)
	}
	return out
}
