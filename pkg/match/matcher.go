// Package match 把不完整的 OCR 文本模糊匹配到已知词表
package match

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold 默认置信阈值
const DefaultThreshold = 0.70

// 阈值比较容差，避免 1-3/10 这类浮点误差落在阈值下方
const scoreEpsilon = 1e-9

// Candidate 一次匹配结果
type Candidate struct {
	Raw        string  // OCR 原文
	Normalized string  // 参与打分的规范化文本
	Entry      string  // 最佳词表条目
	Score      float64 // [0,1]
	Confident  bool
}

func (c Candidate) String() string {
	return fmt.Sprintf("%q -> %q (%.3f, confident=%v)", c.Raw, c.Entry, c.Score, c.Confident)
}

// Matcher 模糊匹配器，并发安全（只读）
type Matcher struct {
	vocab     *Vocabulary
	threshold float64
}

// NewMatcher 创建匹配器，threshold 不在 (0,1] 时使用默认值
func NewMatcher(vocab *Vocabulary, threshold float64) *Matcher {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{vocab: vocab, threshold: threshold}
}

// Threshold 当前阈值
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Vocabulary 当前词表
func (m *Matcher) Vocabulary() *Vocabulary {
	return m.vocab
}

// Confident 分数是否达到阈值（含等于）
func (m *Matcher) Confident(score float64) bool {
	return score+scoreEpsilon >= m.threshold
}

// Match 对文本打分，多行文本逐行打分取最佳
func (m *Matcher) Match(text string) Candidate {
	best := m.matchLine(text)
	best.Raw = text

	if strings.ContainsAny(text, "\r\n") {
		for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
			c := m.matchLine(line)
			if c.Score > best.Score {
				best = c
				best.Raw = text
			}
		}
	}

	best.Confident = best.Entry != "" && m.Confident(best.Score)
	return best
}

func (m *Matcher) matchLine(text string) Candidate {
	norm := Normalize(text)
	c := Candidate{Normalized: norm}
	if norm == "" {
		return c
	}

	for i, entry := range m.vocab.normalized {
		score := Similarity(norm, entry)
		// 严格大于，同分保留靠前的条目
		if c.Entry == "" || score > c.Score {
			c.Entry = m.vocab.entries[i]
			c.Score = score
		}
	}
	return c
}

// Similarity 基于编辑距离的相似度: 1 - d/max(len)
// 输入应已规范化
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
