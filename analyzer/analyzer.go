package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pythonvista/intelligent-libary/core"
)

// Analyzer 是书目文本的启发式分析器：主题、关键词、情感、可读性。
//
// 核心思想：
//   - 全部基于词表匹配与简单统计，无外部模型依赖
//   - 输出是元数据的补充信号，供展示与策略使用，不参与召回排序
type Analyzer struct{}

// Report 是一本书的完整分析结果。
type Report struct {
	Themes      []string    `json:"themes"`
	Topics      []string    `json:"topics"`
	Keywords    []Keyword   `json:"keywords"`
	Sentiment   Sentiment   `json:"sentiment"`
	Readability Readability `json:"readability"`
}

// Keyword 是一个关键词及其频次分。
type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Sentiment 是情感倾向分析结果。
type Sentiment struct {
	Label         string  `json:"label"` // positive / negative / neutral
	Polarity      float64 `json:"polarity"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
}

// Readability 是可读性估计（Flesch-Kincaid 近似）。
type Readability struct {
	Score             float64 `json:"score"` // 0..100，越高越易读
	Level             string  `json:"level"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// themeKeywords 主题 → 线索词表。
var themeKeywords = map[string][]string{
	"adventure":       {"adventure", "journey", "quest", "explore", "travel"},
	"romance":         {"love", "romance", "relationship", "heart", "passion"},
	"mystery":         {"mystery", "detective", "crime", "solve", "investigation"},
	"science_fiction": {"future", "space", "technology", "alien", "robot"},
	"fantasy":         {"magic", "wizard", "dragon", "kingdom", "spell"},
	"historical":      {"history", "war", "century", "historical", "past"},
	"thriller":        {"thriller", "suspense", "danger", "chase", "conspiracy"},
	"horror":          {"horror", "fear", "dark", "terror", "nightmare"},
	"biography":       {"life", "biography", "story", "journey", "memoir"},
	"self_help":       {"improve", "guide", "success", "habit", "growth"},
}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {}, "wonderful": {},
	"beautiful": {}, "love": {}, "best": {}, "perfect": {}, "inspiring": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "worst": {}, "hate": {},
	"boring": {}, "disappointing": {}, "poor": {}, "weak": {},
}

// rakeStopwords 是关键词抽取用的短停用词表。
var rakeStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "was": {}, "are": {},
}

var sentenceSplit = regexp.MustCompile(`[.!?]`)

// AnalyzeBook 对一本书做完整分析：主题与话题取自标题+描述，
// 情感与可读性只看描述正文。
func (a *Analyzer) AnalyzeBook(b core.Book) *Report {
	fullText := b.Title + ". " + b.Description

	return &Report{
		Themes:      a.Themes(fullText),
		Topics:      a.Topics(fullText),
		Keywords:    a.Keywords(fullText, 10),
		Sentiment:   a.Sentiment(b.Description),
		Readability: a.Readability(b.Description),
	}
}

// Themes 按线索词命中数检出主题，降序取前 3；同分按主题名字典序。
func (a *Analyzer) Themes(text string) []string {
	lower := strings.ToLower(text)

	type hit struct {
		theme string
		score int
	}
	var hits []hit
	for theme, keywords := range themeKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{theme: theme, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].theme < hits[j].theme
	})
	if len(hits) > 3 {
		hits = hits[:3]
	}

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.theme)
	}
	return out
}

// Topics 把首字母大写的长词作为候选话题，最多 5 个（去重，保持出现序）。
func (a *Analyzer) Topics(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(text) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) <= 2 {
			continue
		}
		first := []rune(w)[0]
		if !unicode.IsUpper(first) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// Keywords 按句内词频抽取关键词，降序取前 n；同分按词字典序。
func (a *Analyzer) Keywords(text string, n int) []Keyword {
	freq := make(map[string]int)
	for _, sentence := range sentenceSplit.Split(text, -1) {
		for _, w := range strings.Fields(strings.ToLower(sentence)) {
			if !isAlnum(w) {
				continue
			}
			if _, stop := rakeStopwords[w]; stop {
				continue
			}
			freq[w]++
		}
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if n > 0 && len(words) > n {
		words = words[:n]
	}

	out := make([]Keyword, 0, len(words))
	for _, w := range words {
		out = append(out, Keyword{Word: w, Score: float64(freq[w])})
	}
	return out
}

// Sentiment 基于正负词表做情感倾向分析。
// 无任何命中时极性为 0、标签 neutral（不是除零错误）。
func (a *Analyzer) Sentiment(text string) Sentiment {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	s := Sentiment{Label: "neutral", PositiveCount: pos, NegativeCount: neg}
	if total := pos + neg; total > 0 {
		s.Polarity = float64(pos-neg) / float64(total)
		switch {
		case s.Polarity > 0.2:
			s.Label = "positive"
		case s.Polarity < -0.2:
			s.Label = "negative"
		}
	}
	return s
}

// Readability 计算 Flesch-Kincaid 近似分并映射为阅读级别。
// 空文本返回零分 unknown。
func (a *Analyzer) Readability(text string) Readability {
	if strings.TrimSpace(text) == "" {
		return Readability{Level: "unknown"}
	}

	words := strings.Fields(text)
	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences < 1 {
		sentences = 1
	}

	var totalLen int
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := 0.0
	if len(words) > 0 {
		avgWordLen = float64(totalLen) / float64(len(words))
	}
	avgSentenceLen := float64(len(words)) / float64(sentences)

	score := 206.835 - 1.015*avgSentenceLen - 84.6*(avgWordLen/5)
	score = math.Max(0, math.Min(100, score))

	level := "very_difficult"
	switch {
	case score >= 90:
		level = "very_easy"
	case score >= 70:
		level = "easy"
	case score >= 50:
		level = "moderate"
	case score >= 30:
		level = "difficult"
	}

	return Readability{
		Score:             score,
		Level:             level,
		AvgWordLength:     avgWordLen,
		AvgSentenceLength: avgSentenceLen,
	}
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
