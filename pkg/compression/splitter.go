package compression

import (
	"context"
	"strconv"
	"strings"

	"github.com/easyops/contextpipe-go/pkg/candidate"
	"github.com/google/uuid"
)

// Splitter 分块阶段
//
// 使用分隔符列表递归分割过长的候选项，直到块大小在限制
// 范围内。元数据复制到每个子块；子块 ID 由原始 ID 和块序号
// 确定性派生，同样的输入永远产生同样的 ID（幂等要求）。
// 不超过块大小的候选项原样通过。
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// SplitterOption 分块阶段选项函数
type SplitterOption func(*Splitter)

// WithChunkSize 设置目标块大小
func WithChunkSize(n int) SplitterOption {
	return func(s *Splitter) {
		s.chunkSize = n
	}
}

// WithChunkOverlap 设置块之间的重叠大小
func WithChunkOverlap(n int) SplitterOption {
	return func(s *Splitter) {
		s.chunkOverlap = n
	}
}

// WithSeparators 设置分隔符列表（按优先级）
func WithSeparators(separators []string) SplitterOption {
	return func(s *Splitter) {
		s.separators = separators
	}
}

// NewSplitter 创建分块阶段
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{
		chunkSize:    512,
		chunkOverlap: 50,
		separators: []string{
			"\n\n", // 段落
			"\n",   // 行
			". ",   // 句子
			"! ",   // 句子
			"? ",   // 句子
			"; ",   // 分句
			", ",   // 短语
			" ",    // 单词
			"",     // 字符
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name 返回阶段名称
func (s *Splitter) Name() string {
	return "splitter"
}

// validate 校验阶段配置
func (s *Splitter) validate() error {
	if s.chunkSize <= 0 {
		return invalidStageConfig("splitter chunk size must be > 0, got %d", s.chunkSize)
	}
	if s.chunkOverlap < 0 || s.chunkOverlap >= s.chunkSize {
		return invalidStageConfig("splitter overlap must be in [0, chunkSize), got %d", s.chunkOverlap)
	}
	return nil
}

// Transform 分割过长的候选项
func (s *Splitter) Transform(ctx context.Context, pool *candidate.Pool) (*candidate.Pool, error) {
	items := make([]candidate.Item, 0, len(pool.Items))

	for _, item := range pool.Items {
		if len(item.Text) <= s.chunkSize {
			items = append(items, item.Clone())
			continue
		}

		chunks := s.splitText(item.Text, s.separators)
		for i, text := range chunks {
			child := candidate.Item{
				ID:   chunkID(item.ID, i),
				Text: text,
			}
			if len(item.Metadata) > 0 {
				child.Metadata = make(map[string]string, len(item.Metadata))
				for k, v := range item.Metadata {
					child.Metadata[k] = v
				}
			}
			items = append(items, child)
		}
	}

	return pool.WithItems(items), nil
}

// chunkID 从原始 ID 和块序号确定性派生子块 ID
func chunkID(originalID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(originalID+"#"+strconv.Itoa(index))).String()
}

// splitText 递归分割文本
func (s *Splitter) splitText(text string, separators []string) []string {
	var result []string

	// 基本情况：文本足够小
	if len(text) <= s.chunkSize {
		if strings.TrimSpace(text) != "" {
			result = append(result, text)
		}
		return result
	}

	// 没有更多分隔符，强制按字符分割
	if len(separators) == 0 {
		return s.splitByLength(text)
	}

	separator := separators[0]
	remainingSeparators := separators[1:]

	// 使用当前分隔符分割
	var splits []string
	if separator == "" {
		splits = s.splitByLength(text)
	} else {
		splits = strings.Split(text, separator)
	}

	// 合并和递归处理
	var currentChunk strings.Builder

	for i, split := range splits {
		splitWithSep := split
		if i < len(splits)-1 && separator != "" {
			splitWithSep += separator
		}

		potentialLength := currentChunk.Len() + len(splitWithSep)

		if potentialLength > s.chunkSize && currentChunk.Len() > 0 {
			// 当前块已满，保存并开始新块
			chunkText := strings.TrimSpace(currentChunk.String())
			if chunkText != "" {
				result = append(result, chunkText)
			}
			currentChunk.Reset()

			// 添加重叠
			if s.chunkOverlap > 0 && len(result) > 0 {
				lastChunk := result[len(result)-1]
				currentChunk.WriteString(getOverlap(lastChunk, s.chunkOverlap))
			}
		}

		// 如果单个片段超过限制，递归分割
		if len(splitWithSep) > s.chunkSize {
			// 先保存当前块
			if currentChunk.Len() > 0 {
				chunkText := strings.TrimSpace(currentChunk.String())
				if chunkText != "" {
					result = append(result, chunkText)
				}
				currentChunk.Reset()
			}
			// 递归分割
			subChunks := s.splitText(splitWithSep, remainingSeparators)
			result = append(result, subChunks...)
		} else {
			currentChunk.WriteString(splitWithSep)
		}
	}

	// 保存最后一个块
	if currentChunk.Len() > 0 {
		chunkText := strings.TrimSpace(currentChunk.String())
		if chunkText != "" {
			result = append(result, chunkText)
		}
	}

	return result
}

// splitByLength 按长度分割
func (s *Splitter) splitByLength(text string) []string {
	var result []string
	runes := []rune(text)

	for i := 0; i < len(runes); i += s.chunkSize - s.chunkOverlap {
		end := i + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[i:end])
		if strings.TrimSpace(chunk) != "" {
			result = append(result, chunk)
		}
		if end == len(runes) {
			break
		}
	}

	return result
}

// getOverlap 获取重叠部分，尽量在单词边界截断
func getOverlap(text string, overlapSize int) string {
	runes := []rune(text)
	if len(runes) <= overlapSize {
		return text
	}

	start := len(runes) - overlapSize
	overlap := string(runes[start:])

	// 找到第一个单词边界
	for i, r := range overlap {
		if r == ' ' || r == '\n' || r == '\t' {
			return strings.TrimSpace(overlap[i:])
		}
	}

	return overlap
}

// 编译时接口检查
var _ Stage = (*Splitter)(nil)
