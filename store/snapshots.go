package store

import (
	"context"

	"github.com/pythonvista/intelligent-libary/core"
)

// Snapshots 把任意 core.Store 适配成模型快照仓库（SnapshotStore）。
// 快照按 "{Prefix}:{模型名}" 作为 key 存放。
type Snapshots struct {
	// S 底层存储。
	S core.Store

	// Prefix key 前缀；空值回落到 "model:snapshot"。
	Prefix string
}

func (s *Snapshots) prefix() string {
	if s.Prefix == "" {
		return "model:snapshot"
	}
	return s.Prefix
}

func (s *Snapshots) key(name string) string {
	return s.prefix() + ":" + name
}

// SaveSnapshot 保存一个模型快照（无 TTL，快照由下一次训练覆盖）。
func (s *Snapshots) SaveSnapshot(ctx context.Context, name string, blob []byte) error {
	return s.S.Set(ctx, s.key(name), blob)
}

// LoadSnapshot 读取一个模型快照；不存在时返回 ErrStoreNotFound。
func (s *Snapshots) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	return s.S.Get(ctx, s.key(name))
}

var _ core.SnapshotStore = (*Snapshots)(nil)
