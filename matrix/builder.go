package matrix

import (
	"github.com/pythonvista/intelligent-libary/core"
)

// Build 将一批交互记录转为稀疏矩阵与两侧标识符索引。
//
// 策略：
//   - 用户/物品索引只来自本批次中出现过的 id（零交互的行/列在构造上不可能）
//   - 同一 (user,item) 多次出现时，最后一次观测到的权重获胜（覆盖，不求和）
//   - 权重零值按隐式反馈 1.0 处理
//
// 空批次无法构成有效分解输入，返回 INSUFFICIENT_DATA。
func Build(interactions []core.Interaction) (*Sparse, *Index, *Index, error) {
	if len(interactions) == 0 {
		return nil, nil, nil, core.NewDomainError(core.ModuleMatrix,
			core.ErrorCodeInsufficientData, "matrix: no interactions to build from")
	}

	userIDs := make([]string, 0, len(interactions))
	itemIDs := make([]string, 0, len(interactions))
	for _, it := range interactions {
		userIDs = append(userIDs, it.UserID)
		itemIDs = append(itemIDs, it.ItemID)
	}

	users := BuildIndex(userIDs)
	items := BuildIndex(itemIDs)

	m := NewSparse(users.Len(), items.Len())
	for _, it := range interactions {
		ui, err := users.ToIndex(it.UserID)
		if err != nil {
			return nil, nil, nil, err
		}
		ii, err := items.ToIndex(it.ItemID)
		if err != nil {
			return nil, nil, nil, err
		}
		m.Set(ui, ii, it.EffectiveWeight())
	}

	return m, users, items, nil
}
