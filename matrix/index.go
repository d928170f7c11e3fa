package matrix

import (
	"sort"

	"github.com/pythonvista/intelligent-libary/core"
)

// Index 是外部标识符与稠密下标的双向映射。
//
// 不变式：
//   - 由当前训练批次中出现的 id 去重、字典序排序后构建，下标从 0 连续
//   - 构建后冻结：训练态模型生命周期内不增不删
//   - 未收录的 id 在预测期是冷启动信号（UNKNOWN_ID），不会被自动补录
type Index struct {
	toIdx map[string]int
	toID  []string
}

// BuildIndex 从一组 id 构建索引。输入会被去重并按字典序排序，
// 因此同一集合总是产出同一映射（可复现）。
func BuildIndex(ids []string) *Index {
	uniq := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}

	sorted := make([]string, 0, len(uniq))
	for id := range uniq {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	toIdx := make(map[string]int, len(sorted))
	for i, id := range sorted {
		toIdx[id] = i
	}
	return &Index{toIdx: toIdx, toID: sorted}
}

// Len 返回索引规模。
func (ix *Index) Len() int {
	return len(ix.toID)
}

// ToIndex 将外部 id 转为稠密下标；未收录时返回 UNKNOWN_ID 错误，
// 调用方应将其作为冷启动信号处理（core.IsColdStart），而非崩溃。
func (ix *Index) ToIndex(id string) (int, error) {
	if i, ok := ix.toIdx[id]; ok {
		return i, nil
	}
	return 0, core.NewDomainError(core.ModuleMatrix, core.ErrorCodeUnknownID,
		"matrix: unknown identifier "+id)
}

// Contains 返回 id 是否已收录。
func (ix *Index) Contains(id string) bool {
	_, ok := ix.toIdx[id]
	return ok
}

// FromIndex 将稠密下标转回外部 id。
func (ix *Index) FromIndex(i int) (string, bool) {
	if i < 0 || i >= len(ix.toID) {
		return "", false
	}
	return ix.toID[i], true
}

// IDs 返回按下标序排列的全部 id（只读视图，调用方不得修改）。
func (ix *Index) IDs() []string {
	return ix.toID
}
