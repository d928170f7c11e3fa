package text

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Tokenizer 是内容模型与文本分析共用的预处理器。
//
// 处理流程（顺序固定）：
//  1. 小写化
//  2. 按 unicode 词边界切分
//  3. 丢弃含非字母数字字符的 token
//  4. 丢弃停用词
//  5. 丢弃长度 <= 2 的 token
//  6. snowball 词干归一（可关闭）
type Tokenizer struct {
	// Stem 是否做词干归一；默认开启。
	Stem bool

	stopwords map[string]struct{}
}

// NewTokenizer 创建默认配置的 Tokenizer（英文停用词 + 词干归一）。
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		Stem:      true,
		stopwords: defaultStopwords(),
	}
}

// Tokenize 将文本切分为归一化 token 列表。
func (t *Tokenizer) Tokenize(s string) []string {
	words := splitWords(strings.ToLower(s))
	tokens := make([]string, 0, len(words))

	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if !isAlnum(w) {
			continue
		}
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		if t.Stem {
			w = english.Stem(w, false)
			if len(w) <= 2 {
				continue
			}
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// IsStopword 返回该词（小写）是否在停用词表中。
func (t *Tokenizer) IsStopword(w string) bool {
	_, ok := t.stopwords[strings.ToLower(w)]
	return ok
}

// splitWords 按 unicode 词边界切分文本。
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
