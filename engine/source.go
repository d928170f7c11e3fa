package engine

import (
	"context"

	"github.com/pythonvista/intelligent-libary/core"
)

// StaticSource 是内存实现的 DataSource，用于测试/示例/单机引导。
// 用户历史从交互记录推导：按出现序去重。
type StaticSource struct {
	Data    []core.Interaction
	Catalog []core.Book
}

func (s *StaticSource) Interactions(_ context.Context) ([]core.Interaction, error) {
	return s.Data, nil
}

func (s *StaticSource) Books(_ context.Context) ([]core.Book, error) {
	return s.Catalog, nil
}

func (s *StaticSource) UserHistory(_ context.Context, userID string) ([]string, error) {
	seen := make(map[string]struct{})
	var history []string
	for _, it := range s.Data {
		if it.UserID != userID {
			continue
		}
		if _, dup := seen[it.ItemID]; dup {
			continue
		}
		seen[it.ItemID] = struct{}{}
		history = append(history, it.ItemID)
	}
	return history, nil
}

var _ core.DataSource = (*StaticSource)(nil)
