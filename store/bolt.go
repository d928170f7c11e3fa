package store

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/pythonvista/intelligent-libary/core"
)

// snapshotBucket 是模型快照所在的 bucket。
var snapshotBucket = []byte("snapshots")

// BoltSnapshots 是 bbolt 实现的模型快照仓库：单机部署下无需外部依赖，
// 快照落在本地文件，进程重启后可直接加载，免去冷启动重训。
type BoltSnapshots struct {
	db *bolt.DB
}

// OpenBoltSnapshots 打开（必要时创建）快照数据库文件。
func OpenBoltSnapshots(path string) (*BoltSnapshots, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltSnapshots{db: db}, nil
}

// SaveSnapshot 保存一个模型快照（覆盖旧值）。
func (b *BoltSnapshots) SaveSnapshot(_ context.Context, name string, blob []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(name), blob)
	})
}

// LoadSnapshot 读取一个模型快照；不存在时返回 ErrStoreNotFound。
func (b *BoltSnapshots) LoadSnapshot(_ context.Context, name string) ([]byte, error) {
	var blob []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get([]byte(name))
		if v == nil {
			return core.ErrStoreNotFound
		}
		blob = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// Close 关闭数据库文件。
func (b *BoltSnapshots) Close() error {
	return b.db.Close()
}

var _ core.SnapshotStore = (*BoltSnapshots)(nil)
