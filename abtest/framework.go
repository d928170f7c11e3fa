package abtest

import (
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/pythonvista/intelligent-libary/core"
)

// EventKind 是实验反馈事件类型。
type EventKind string

const (
	EventImpression EventKind = "impression" // 曝光：每次下发推荐列表恰好记录一次
	EventClick      EventKind = "click"      // 点击
	EventConversion EventKind = "conversion" // 转化（借阅）
)

// Stats 是单变体的计数快照，可跨分片合并（Merge）。
type Stats struct {
	Impressions uint64 `json:"impressions"`
	Clicks      uint64 `json:"clicks"`
	Conversions uint64 `json:"conversions"`
}

// Performance 是单变体的效果指标。
type Performance struct {
	Stats
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
}

type counters struct {
	impressions atomic.Uint64
	clicks      atomic.Uint64
	conversions atomic.Uint64
}

// Framework 是 A/B 实验框架：确定性变体分配 + 并发安全的效果计数。
//
// 分配规则：xxhash64(user_id) % 变体数。同一用户在变体列表不变时
// 永远落在同一变体，且跨进程/跨平台可复现（显式指纹，不依赖语言内建 hash）。
// 变更变体列表或其顺序会改变既有用户的分配——这是破坏性变更，调用方自行承担。
//
// 计数是请求路径上唯一的热点可变共享状态，全部走 atomic，无锁。
type Framework struct {
	variants       []string
	index          map[string]int
	defaultVariant string
	stats          []counters
}

// New 创建实验框架。变体列表为空、重复，或默认变体不在列表中，
// 都是构造期的无效配置，直接拒绝。
func New(variants []string, defaultVariant string) (*Framework, error) {
	if len(variants) == 0 {
		return nil, core.NewDomainError(core.ModuleABTest, core.ErrorCodeInvalidConfig,
			"abtest: empty variant set")
	}

	index := make(map[string]int, len(variants))
	for i, v := range variants {
		if v == "" {
			return nil, core.NewDomainError(core.ModuleABTest, core.ErrorCodeInvalidConfig,
				"abtest: empty variant name")
		}
		if _, dup := index[v]; dup {
			return nil, core.NewDomainError(core.ModuleABTest, core.ErrorCodeInvalidConfig,
				"abtest: duplicate variant "+v)
		}
		index[v] = i
	}

	if defaultVariant == "" {
		defaultVariant = variants[0]
	}
	if _, ok := index[defaultVariant]; !ok {
		return nil, core.NewDomainError(core.ModuleABTest, core.ErrorCodeInvalidConfig,
			"abtest: default variant "+defaultVariant+" not in variant set")
	}

	return &Framework{
		variants:       append([]string(nil), variants...),
		index:          index,
		defaultVariant: defaultVariant,
		stats:          make([]counters, len(variants)),
	}, nil
}

// Variants 返回按声明序排列的变体列表（只读视图）。
func (f *Framework) Variants() []string {
	return f.variants
}

// DefaultVariant 返回无统计数据时的兜底变体。
func (f *Framework) DefaultVariant() string {
	return f.defaultVariant
}

// Contains 返回变体是否在集合中。
func (f *Framework) Contains(variant string) bool {
	_, ok := f.index[variant]
	return ok
}

// AssignVariant 确定性地把用户分配到一个变体。幂等：同一 id 重复调用
// 必然返回同一变体。
func (f *Framework) AssignVariant(userID string) string {
	h := xxhash.Sum64String(userID)
	return f.variants[h%uint64(len(f.variants))]
}

// Record 为一个变体原子累加一个事件计数。未知变体或未知事件返回 NOT_FOUND。
func (f *Framework) Record(kind EventKind, variant string) error {
	i, ok := f.index[variant]
	if !ok {
		return core.NewDomainError(core.ModuleABTest, core.ErrorCodeNotFound,
			"abtest: unknown variant "+variant)
	}
	switch kind {
	case EventImpression:
		f.stats[i].impressions.Add(1)
	case EventClick:
		f.stats[i].clicks.Add(1)
	case EventConversion:
		f.stats[i].conversions.Add(1)
	default:
		return core.NewDomainError(core.ModuleABTest, core.ErrorCodeNotFound,
			"abtest: unknown event kind "+string(kind))
	}
	return nil
}

// RecordImpression 记录一次推荐列表曝光。
func (f *Framework) RecordImpression(variant string) error {
	return f.Record(EventImpression, variant)
}

// RecordClick 记录一次点击。
func (f *Framework) RecordClick(variant string) error {
	return f.Record(EventClick, variant)
}

// RecordConversion 记录一次转化。
func (f *Framework) RecordConversion(variant string) error {
	return f.Record(EventConversion, variant)
}

// Snapshot 返回各变体的计数快照。
func (f *Framework) Snapshot() map[string]Stats {
	out := make(map[string]Stats, len(f.variants))
	for i, v := range f.variants {
		out[v] = Stats{
			Impressions: f.stats[i].impressions.Load(),
			Clicks:      f.stats[i].clicks.Load(),
			Conversions: f.stats[i].conversions.Load(),
		}
	}
	return out
}

// Merge 把另一分片的计数快照并入本框架（计数单调，直接相加）。
// 未知变体被忽略：分片间变体集合必须一致才有意义。
func (f *Framework) Merge(shard map[string]Stats) {
	for v, s := range shard {
		i, ok := f.index[v]
		if !ok {
			continue
		}
		f.stats[i].impressions.Add(s.Impressions)
		f.stats[i].clicks.Add(s.Clicks)
		f.stats[i].conversions.Add(s.Conversions)
	}
}

// Performance 计算各变体的 CTR 与转化率。
// 零曝光时分母按 1 计算：报告为 0，而不是除零错误。
func (f *Framework) Performance() map[string]Performance {
	out := make(map[string]Performance, len(f.variants))
	for v, s := range f.Snapshot() {
		denom := float64(s.Impressions)
		if denom == 0 {
			denom = 1
		}
		out[v] = Performance{
			Stats:          s,
			CTR:            float64(s.Clicks) / denom,
			ConversionRate: float64(s.Conversions) / denom,
		}
	}
	return out
}

// WinningVariant 返回转化率最高的变体。
// 同分按变体声明序；尚无任何统计时返回默认变体。
func (f *Framework) WinningVariant() string {
	perf := f.Performance()

	var total uint64
	for _, p := range perf {
		total += p.Impressions + p.Clicks + p.Conversions
	}
	if total == 0 {
		return f.defaultVariant
	}

	winner := f.variants[0]
	best := perf[winner].ConversionRate
	for _, v := range f.variants[1:] {
		if perf[v].ConversionRate > best {
			winner, best = v, perf[v].ConversionRate
		}
	}
	return winner
}

// ParseEventKind 解析事件类型字符串（大小写不敏感）。
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(strings.ToLower(s)) {
	case EventImpression:
		return EventImpression, nil
	case EventClick:
		return EventClick, nil
	case EventConversion:
		return EventConversion, nil
	}
	return "", core.NewDomainError(core.ModuleABTest, core.ErrorCodeNotFound,
		"abtest: unknown event kind "+s)
}
