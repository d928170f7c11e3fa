// Package libary 是一个图书推荐引擎（Library Recommender）。
//
// 设计要点：
//   - 多算法混合：SVD / NMF 协同过滤 + TF-IDF 内容相似 + 时间衰减，线性加权融合
//   - 确定性实验：用户按稳定哈希分配到算法变体，曝光/点击/转化全程 atomic 计数
//   - 快照发布：训练态不可变，atomic 指针整体切换，训练与服务可并发
//   - 冷启动可恢复：未知用户/未训练模型吸收为空结果，而不是请求失败
package libary

import (
	"github.com/pythonvista/intelligent-libary/config"
	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/engine"
)

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type Engine = engine.Engine
type Option = engine.Option
type Config = config.Config

type Interaction = core.Interaction
type Book = core.Book
type ScoredItem = core.ScoredItem
type DataSource = core.DataSource

var (
	New           = engine.New
	DefaultConfig = config.Default

	WithLogger        = engine.WithLogger
	WithSnapshotStore = engine.WithSnapshotStore
	WithKeyValueStore = engine.WithKeyValueStore
	WithClock         = engine.WithClock
)
