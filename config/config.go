package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pythonvista/intelligent-libary/core"
	"github.com/pythonvista/intelligent-libary/hybrid"
)

// Config 是推荐引擎的配置结构（支持 YAML/JSON）。
// 零值字段在 Load 时回落到 Default() 的对应值。
type Config struct {
	SVD      SVDConfig      `yaml:"svd" json:"svd"`
	NMF      NMFConfig      `yaml:"nmf" json:"nmf"`
	TFIDF    TFIDFConfig    `yaml:"tfidf" json:"tfidf"`
	Temporal TemporalConfig `yaml:"temporal" json:"temporal"`
	Hybrid   hybrid.Weights `yaml:"hybrid" json:"hybrid"`
	ABTest   ABTestConfig   `yaml:"abtest" json:"abtest"`

	// FilterRules 是 CEL 过滤规则表达式列表，按序应用。
	FilterRules []string `yaml:"filter_rules" json:"filter_rules"`
}

// SVDConfig 是 SVD 模型配置。
type SVDConfig struct {
	Components int `yaml:"components" json:"components"`
}

// NMFConfig 是 NMF 模型配置。
type NMFConfig struct {
	Components int     `yaml:"components" json:"components"`
	MaxIter    int     `yaml:"max_iter" json:"max_iter"`
	Tol        float64 `yaml:"tol" json:"tol"`
	Seed       int64   `yaml:"seed" json:"seed"`
}

// TFIDFConfig 是内容模型配置。
type TFIDFConfig struct {
	MaxFeatures    int     `yaml:"max_features" json:"max_features"`
	MinDocCount    int     `yaml:"min_doc_count" json:"min_doc_count"`
	MaxDocFraction float64 `yaml:"max_doc_fraction" json:"max_doc_fraction"`
}

// TemporalConfig 是时间衰减配置。
type TemporalConfig struct {
	DecayFactor float64 `yaml:"decay_factor" json:"decay_factor"`
	WindowDays  int     `yaml:"window_days" json:"window_days"`
}

// ABTestConfig 是实验框架配置。
type ABTestConfig struct {
	Variants       []string `yaml:"variants" json:"variants"`
	DefaultVariant string   `yaml:"default_variant" json:"default_variant"`
}

// Default 返回生产默认配置。
func Default() *Config {
	return &Config{
		SVD: SVDConfig{Components: 50},
		NMF: NMFConfig{
			Components: 30,
			MaxIter:    200,
			Tol:        1e-4,
			Seed:       42,
		},
		TFIDF: TFIDFConfig{
			MaxFeatures:    500,
			MinDocCount:    2,
			MaxDocFraction: 0.8,
		},
		Temporal: TemporalConfig{
			DecayFactor: 0.95,
			WindowDays:  90,
		},
		Hybrid: hybrid.DefaultWeights(),
		ABTest: ABTestConfig{
			Variants:       []string{"svd", "nmf", "tfidf", "hybrid"},
			DefaultVariant: "hybrid",
		},
	}
}

// LoadFromYAML 从 YAML 文件加载配置。文件中缺席的字段保留默认值。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。文件中缺席的字段保留默认值。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return cfg, nil
}

// Validate 校验配置的一致性；非法配置在构造期拒绝，而不是运行期出错。
func (c *Config) Validate() error {
	if c.SVD.Components < 0 {
		return invalid("svd.components must be >= 0")
	}
	if c.NMF.Components < 0 || c.NMF.MaxIter < 0 || c.NMF.Tol < 0 {
		return invalid("nmf parameters must be >= 0")
	}
	if c.TFIDF.MaxFeatures < 0 || c.TFIDF.MinDocCount < 0 {
		return invalid("tfidf parameters must be >= 0")
	}
	if c.TFIDF.MaxDocFraction < 0 || c.TFIDF.MaxDocFraction > 1 {
		return invalid("tfidf.max_doc_fraction must be in [0,1]")
	}
	if c.Temporal.DecayFactor < 0 || c.Temporal.DecayFactor > 1 {
		return invalid("temporal.decay_factor must be in [0,1]")
	}
	if c.Temporal.WindowDays < 0 {
		return invalid("temporal.window_days must be >= 0")
	}
	for _, w := range []float64{c.Hybrid.SVD, c.Hybrid.NMF, c.Hybrid.TFIDF, c.Hybrid.Temporal} {
		if w < 0 {
			return invalid("hybrid weights must be >= 0")
		}
	}
	if len(c.ABTest.Variants) == 0 {
		return invalid("abtest.variants must not be empty")
	}
	return nil
}

func invalid(msg string) error {
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, "config: "+msg)
}
