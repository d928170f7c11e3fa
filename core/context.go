package core

// RecommendContext 承载一次推荐请求的用户/历史/约束信息，贯穿整个链路透传。
type RecommendContext struct {
	UserID string

	// History 是用户历史交互过的物品 ID 列表，内容模型的输入。
	History []string

	// N 期望返回的推荐数量；<= 0 时不截断。
	N int

	// Exclude 显式排除的物品 ID（已借阅、已曝光等）。
	Exclude []string

	// Variant 显式指定的实验变体；为空时由 A/B 框架按 UserID 确定性分配。
	Variant string
}
