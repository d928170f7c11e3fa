package filter

import (
	"context"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/pkg/utils"
)

// Filter 是过滤器的抽象接口，用于判断一个推荐结果是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.ScoredItem) (bool, error)
}

// Blacklist 是黑名单过滤器，过滤掉黑名单中的物品（下架/封禁的书目）。
type Blacklist struct {
	// ItemIDs 是内存中的黑名单物品 ID 列表
	ItemIDs []string

	// Lookup 可选的外部黑名单查询（如存储侧集合）
	Lookup func(ctx context.Context, itemID string) (bool, error)
}

func (f *Blacklist) Name() string {
	return "filter.blacklist"
}

func (f *Blacklist) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.ScoredItem,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.ItemIDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Lookup != nil {
		blocked, err := f.Lookup(ctx, item.ID)
		if err == nil && blocked {
			return true, nil
		}
	}
	return false, nil
}

// Apply 依次用多个过滤器裁剪结果集。任何一个过滤器命中即移除该物品，
// 并打上 filtered 标签记录原因。过滤器自身出错时跳过该过滤器，不中断流程。
func Apply(
	ctx context.Context,
	rctx *core.RecommendContext,
	filters []Filter,
	items []*core.ScoredItem,
) []*core.ScoredItem {
	if len(filters) == 0 || len(items) == 0 {
		return items
	}

	out := make([]*core.ScoredItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		removed := false
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				continue
			}
			if ok {
				removed = true
				item.PutLabel("filtered", utils.Label{Value: "true", Source: f.Name()})
				break
			}
		}
		if removed {
			continue
		}
		out = append(out, item)
	}
	return out
}
