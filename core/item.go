package core

import (
	"time"

	"github.com/pythonvista/intelligent-libary/pkg/utils"
)

// Interaction 是一次用户-物品交互记录（借阅/点击/评分）。
// 摄入后不可变；一批 Interaction 是因子模型训练的唯一输入。
// Weight <= 0 时按隐式反馈 1.0 处理。
type Interaction struct {
	UserID    string
	ItemID    string
	Weight    float64
	Timestamp time.Time
}

// EffectiveWeight 返回交互权重，零值回落到隐式反馈 1.0。
func (it Interaction) EffectiveWeight() float64 {
	if it.Weight <= 0 {
		return 1.0
	}
	return it.Weight
}

// Book 是物品的内容元数据，供内容相似模型与启发式分析使用。
// 除 ID 外所有字段均可为空。
type Book struct {
	ID          string
	Title       string
	Author      string
	Subject     string
	Description string
	Tags        []string
}

// ScoredItem 是推荐链路中的统一承载结构：分数、算法来源、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type ScoredItem struct {
	ID        string
	Score     float64
	Algorithm string
	Labels    map[string]utils.Label
}

func NewScoredItem(id string) *ScoredItem {
	return &ScoredItem{
		ID:     id,
		Score:  0,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *ScoredItem) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
