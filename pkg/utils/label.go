package utils

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// 在本引擎中用于标记候选物品的算法来源（svd / nmf / tfidf / hybrid / temporal）
// 以及 explain 输出的依据；Value 与 Source 的语义由业务自定义。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // factor / content / temporal / hybrid / filter ...
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
