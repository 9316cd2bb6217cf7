// Package config 提供配置加载和管理功能
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config 全局配置结构
//
// 识别的选项见各子配置；未识别的键会被忽略而不是拒绝。
type Config struct {
	// LLM LLM 配置
	LLM LLMConfig `koanf:"llm"`
	// Selection 示例选择配置
	Selection SelectionConfig `koanf:"selection"`
	// Compression 压缩管道配置
	Compression CompressionConfig `koanf:"compression"`
	// Retrieval 检索编排配置
	Retrieval RetrievalConfig `koanf:"retrieval"`
	// Observability 可观测性配置
	Observability ObservabilityConfig `koanf:"observability"`
}

// LLMConfig LLM 客户端配置
type LLMConfig struct {
	// APIKey API 密钥
	APIKey string `koanf:"api_key"`
	// BaseURL 自定义 API 端点
	BaseURL string `koanf:"base_url"`
	// Model 模型名称
	Model string `koanf:"model"`
	// EmbeddingModel 嵌入模型名称
	EmbeddingModel string `koanf:"embedding_model"`
	// Timeout 请求超时
	Timeout time.Duration `koanf:"timeout"`
	// MaxRetries 最大重试次数
	MaxRetries int `koanf:"max_retries"`
	// RetryDelay 重试间隔基数
	RetryDelay time.Duration `koanf:"retry_delay"`
}

// SelectionConfig 示例选择配置
type SelectionConfig struct {
	// K 最大选择数量
	K int `koanf:"k"`
	// MaxLength 长度预算（字符或 Token，取决于计数器）
	MaxLength int `koanf:"max_length"`
	// Threshold 相似度/重叠度阈值
	Threshold float64 `koanf:"threshold"`
	// Lambda MMR 相关性与多样性的权衡系数 [0, 1]
	Lambda float64 `koanf:"lambda"`
}

// CompressionConfig 压缩管道配置
type CompressionConfig struct {
	// RedundancyThreshold 近重复判定阈值
	RedundancyThreshold float64 `koanf:"redundancy_threshold"`
	// SimilarityThreshold 相关性过滤阈值
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	// ChunkSize 分块目标大小
	ChunkSize int `koanf:"chunk_size"`
	// ChunkOverlap 分块重叠大小
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// RetrievalConfig 检索编排配置
type RetrievalConfig struct {
	// TopK 基础检索返回数量
	TopK int `koanf:"top_k"`
	// Workers 异步入口的工作协程数量
	Workers int `koanf:"workers"`
	// Timeout 单次检索超时
	Timeout time.Duration `koanf:"timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	// Enabled 是否启用
	Enabled bool `koanf:"enabled"`
	// ServiceName 服务名称
	ServiceName string `koanf:"service_name"`
	// TracerEndpoint 追踪端点
	TracerEndpoint string `koanf:"tracer_endpoint"`
	// MetricsEndpoint 指标端点
	MetricsEndpoint string `koanf:"metrics_endpoint"`
	// SampleRate 采样率 [0, 1]
	SampleRate float64 `koanf:"sample_rate"`
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New("."),
	}
}

// LoadEnv 从环境变量加载配置
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		// 转换环境变量名: CONTEXTPIPE_LLM_API_KEY -> llm.api_key
		// 只有第一个下划线分隔配置段，叶子键内的下划线保留，
		// 否则 SELECTION_MAX_LENGTH 这类多词键永远匹配不上
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		if i := strings.Index(s, "_"); i >= 0 {
			s = s[:i] + "." + s[i+1:]
		}
		return s
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString 获取字符串配置值
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt 获取整数配置值
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetFloat 获取浮点配置值
func (l *Loader) GetFloat(key string) float64 {
	return l.k.Float64(key)
}

// GetBool 获取布尔配置值
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// GetDuration 获取时间间隔配置值
func (l *Loader) GetDuration(key string) time.Duration {
	return l.k.Duration(key)
}

// Load 加载完整配置（环境变量，前缀 CONTEXTPIPE_）
func Load() (*Config, error) {
	loader := NewLoader()

	if err := loader.LoadEnv("CONTEXTPIPE_"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults 应用默认配置值
func applyDefaults(cfg *Config) {
	// LLM 默认值
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.LLM.RetryDelay == 0 {
		cfg.LLM.RetryDelay = time.Second
	}

	// Compression 默认值
	if cfg.Compression.RedundancyThreshold == 0 {
		cfg.Compression.RedundancyThreshold = 0.95
	}
	if cfg.Compression.ChunkSize == 0 {
		cfg.Compression.ChunkSize = 512
	}
	if cfg.Compression.ChunkOverlap == 0 {
		cfg.Compression.ChunkOverlap = 50
	}

	// Retrieval 默认值
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.Workers == 0 {
		cfg.Retrieval.Workers = 4
	}
	if cfg.Retrieval.Timeout == 0 {
		cfg.Retrieval.Timeout = 30 * time.Second
	}

	// Observability 默认值
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
}
