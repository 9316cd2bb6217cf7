package selection

import (
	"context"
	"sort"
	"strings"

	"github.com/easyops/contextpipe-go/pkg/candidate"
)

// NGramOverlap N-gram 重叠度策略
//
// 用查询与候选文本的 unigram+bigram 集合的 Jaccard 比率打分：
// |ngrams(query) ∩ ngrams(text)| / |ngrams(query) ∪ ngrams(text)|。
// 分数低于 Threshold 的候选项被排除，其余按分数降序排列，
// 分数相同时保持原始池顺序。
//
// Threshold 等于 ThresholdDisabled 时只排序不过滤；
// Threshold 大于 1.0 时所有候选项都会被排除。
type NGramOverlap struct{}

// NewNGramOverlap 创建 N-gram 重叠度策略
func NewNGramOverlap() *NGramOverlap {
	return &NGramOverlap{}
}

// Kind 返回策略类型标签
func (s *NGramOverlap) Kind() Kind {
	return KindNGramOverlap
}

// Select 按重叠度排序并过滤候选项
func (s *NGramOverlap) Select(ctx context.Context, query string, pool *candidate.Pool, config *Config) ([]candidate.Item, error) {
	queryGrams := ngramSet(query)

	type scoredItem struct {
		item  candidate.Item
		score float64
		index int
	}

	scored := make([]scoredItem, 0, len(pool.Items))
	for i, item := range pool.Items {
		score := jaccard(queryGrams, ngramSet(item.Text))

		// 哨兵阈值表示只排序，不排除任何候选项
		if config.Threshold != ThresholdDisabled && score < config.Threshold {
			continue
		}

		scored = append(scored, scoredItem{
			item:  item.WithScore(score),
			score: score,
			index: i,
		})
	}

	// 按分数降序，分数相同时按原始池顺序
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	limit := len(scored)
	if config.K > 0 && config.K < limit {
		limit = config.K
	}

	selected := make([]candidate.Item, 0, limit)
	for _, sc := range scored[:limit] {
		selected = append(selected, sc.item)
	}

	return selected, nil
}

// ngramSet 构建文本的 unigram+bigram 集合
func ngramSet(text string) map[string]struct{} {
	tokens := tokenize(text)
	grams := make(map[string]struct{}, len(tokens)*2)

	for i, token := range tokens {
		grams[token] = struct{}{}
		if i+1 < len(tokens) {
			grams[token+" "+tokens[i+1]] = struct{}{}
		}
	}

	return grams
}

// jaccard 计算两个集合的 Jaccard 比率
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for gram := range a {
		if _, ok := b[gram]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// tokenize 将文本分割为小写词元用于比较
//
// 中文等 CJK 字符没有空格分词，按单字切分成词元，连续的
// 中文串才能得到字符级的 unigram/bigram 粒度。
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case isTokenChar(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// isTokenChar 返回该字符是否应该是词元的一部分
func isTokenChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9')
}

// isCJK 返回该字符是否是 CJK 统一表意文字
func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// 编译时接口检查
var _ Strategy = (*NGramOverlap)(nil)
