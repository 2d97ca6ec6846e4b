// Package config holds the engine configuration envelope. Every key is
// optional with a default; Load reads a YAML file, ApplyEnvOverrides
// layers LEXGRAPH_* variables on top, and Validate rejects inconsistent
// values before anything starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"lexgraph/internal/types"
)

// Config holds all lexgraph configuration.
type Config struct {
	Sampling  SamplingConfig  `yaml:"sampling"`
	Sizing    SizingConfig    `yaml:"sizing"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Inference InferenceConfig `yaml:"inference"`
	Extract   ExtractConfig   `yaml:"extract"`
	Patterns  PatternsConfig  `yaml:"patterns"`
	Resources ResourcesConfig `yaml:"resources"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SamplingConfig pins the reproducibility contract for extraction calls.
type SamplingConfig struct {
	EntityTemperature       float64 `yaml:"entity_temperature"`
	RelationshipTemperature float64 `yaml:"relationship_temperature"`
	TopP                    float64 `yaml:"top_p"`
	TopK                    int     `yaml:"top_k"`
	Seed                    int64   `yaml:"seed"`
}

// SizingConfig configures size detection and router thresholds.
type SizingConfig struct {
	ThresholdVerySmall  int     `yaml:"size_threshold_very_small"`
	ThresholdSmall      int     `yaml:"size_threshold_small"`
	ThresholdMedium     int     `yaml:"size_threshold_medium"`
	LegalTokenMultiplier float64 `yaml:"legal_token_multiplier"`
}

// ChunkingConfig configures the legal chunker.
type ChunkingConfig struct {
	MaxChars             int     `yaml:"chunk_max_chars"`
	MinChars             int     `yaml:"chunk_min_chars"`
	OverlapChars         int     `yaml:"chunk_overlap_chars"`
	MaxChunksPerDocument int     `yaml:"max_chunks_per_document"`
	ContextWindowTokens  int     `yaml:"context_window_tokens"`
	SafetyFraction       float64 `yaml:"safety_fraction"`
	FixedOverheadTokens  int     `yaml:"fixed_overhead_tokens"`
}

// ServiceConfig describes one backend endpoint.
type ServiceConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// InferenceConfig configures the backend client envelope.
type InferenceConfig struct {
	Instruct   ServiceConfig `yaml:"instruct"`
	Thinking   ServiceConfig `yaml:"thinking"`
	Embeddings ServiceConfig `yaml:"embeddings"`

	MaxModelContextTokens int     `yaml:"max_model_context_tokens"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`
	RequestsPerMinute     int     `yaml:"requests_per_minute"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	MaxRetries            int     `yaml:"max_retries"`
	BackoffFactor         float64 `yaml:"backoff_factor"`
	BackoffMaxSeconds     int     `yaml:"backoff_max_seconds"`

	CircuitBreakerFailureThreshold int `yaml:"circuit_breaker_failure_threshold"`
	CircuitBreakerRecoveryTimeout  int `yaml:"circuit_breaker_recovery_timeout"`
}

// ExtractConfig configures the orchestrator.
type ExtractConfig struct {
	MaxConcurrentChunks         int     `yaml:"max_concurrent_chunks"`
	ExtractionDeadlineSeconds   int     `yaml:"extraction_deadline_seconds"`
	WaveTimeoutSeconds          int     `yaml:"wave_timeout_seconds"`
	DedupMode                   string  `yaml:"dedup_mode"` // exact, fuzzy
	DedupSimilarityThreshold    float64 `yaml:"dedup_similarity_threshold"`
	RelationshipConfidenceFloor float64 `yaml:"relationship_confidence_floor"`
	ContextWindowChars          int     `yaml:"context_window_chars"`
}

// PatternsConfig configures the pattern catalog client.
type PatternsConfig struct {
	CatalogURL      string `yaml:"catalog_url"`
	CacheTTLSeconds int    `yaml:"patterns_cache_ttl_seconds"`
	TemplateDir     string `yaml:"template_dir"` // optional on-disk prompt overrides
}

// ResourcesConfig configures the resource monitor.
type ResourcesConfig struct {
	GPUMemoryThreshold    float64 `yaml:"gpu_memory_threshold"`
	SampleIntervalSeconds int     `yaml:"sample_interval_seconds"`
	RejectOnPressure      bool    `yaml:"reject_on_pressure"`
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the configuration with every spec default applied.
func Default() *Config {
	return &Config{
		Sampling: SamplingConfig{
			EntityTemperature:       0.0,
			RelationshipTemperature: 0.0,
			TopP:                    0.95,
			TopK:                    40,
			Seed:                    42,
		},
		Sizing: SizingConfig{
			ThresholdVerySmall:   5_000,
			ThresholdSmall:       50_000,
			ThresholdMedium:      150_000,
			LegalTokenMultiplier: 1.1,
		},
		Chunking: ChunkingConfig{
			MaxChars:             40_000,
			MinChars:             2_000,
			OverlapChars:         1_000,
			MaxChunksPerDocument: 50,
			ContextWindowTokens:  16_384,
			SafetyFraction:       0.75,
			FixedOverheadTokens:  2_048,
		},
		Inference: InferenceConfig{
			Instruct:                       ServiceConfig{BaseURL: "http://localhost:8001/v1", Model: "legal-instruct"},
			Thinking:                       ServiceConfig{BaseURL: "http://localhost:8002/v1", Model: "legal-thinking"},
			Embeddings:                     ServiceConfig{BaseURL: "http://localhost:8003/v1", Model: "legal-embed"},
			MaxModelContextTokens:          32_768,
			MaxConcurrentRequests:          5,
			RequestsPerMinute:              60,
			RequestTimeoutSeconds:          120,
			MaxRetries:                     3,
			BackoffFactor:                  2.0,
			BackoffMaxSeconds:              30,
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerRecoveryTimeout:  60,
		},
		Extract: ExtractConfig{
			MaxConcurrentChunks:         5,
			ExtractionDeadlineSeconds:   1_800,
			WaveTimeoutSeconds:          300,
			DedupMode:                   "exact",
			DedupSimilarityThreshold:    0,
			RelationshipConfidenceFloor: 0.85,
			ContextWindowChars:          50,
		},
		Patterns: PatternsConfig{
			CacheTTLSeconds: 3_600,
		},
		Resources: ResourcesConfig{
			GPUMemoryThreshold:    0.90,
			SampleIntervalSeconds: 30,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file and applies it over the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &types.ConfigError{Field: path, Msg: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return cfg, nil
}

// ApplyEnvOverrides layers LEXGRAPH_* environment variables over cfg.
// Only the operationally interesting knobs are exposed via env.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LEXGRAPH_INSTRUCT_URL"); v != "" {
		c.Inference.Instruct.BaseURL = v
	}
	if v := os.Getenv("LEXGRAPH_THINKING_URL"); v != "" {
		c.Inference.Thinking.BaseURL = v
	}
	if v := os.Getenv("LEXGRAPH_INSTRUCT_MODEL"); v != "" {
		c.Inference.Instruct.Model = v
	}
	if v := os.Getenv("LEXGRAPH_THINKING_MODEL"); v != "" {
		c.Inference.Thinking.Model = v
	}
	if v := os.Getenv("LEXGRAPH_API_KEY"); v != "" {
		c.Inference.Instruct.APIKey = v
		c.Inference.Thinking.APIKey = v
		c.Inference.Embeddings.APIKey = v
	}
	if v := os.Getenv("LEXGRAPH_CATALOG_URL"); v != "" {
		c.Patterns.CatalogURL = v
	}
	if v := os.Getenv("LEXGRAPH_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Sampling.Seed = n
		}
	}
	if v := os.Getenv("LEXGRAPH_MAX_CONCURRENT_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Extract.MaxConcurrentChunks = n
		}
	}
	if v := os.Getenv("LEXGRAPH_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || v == "true"
	}
}

// Validate checks the configuration for inconsistencies. The first
// problem found is returned as a ConfigError.
func (c *Config) Validate() error {
	if c.Sizing.ThresholdVerySmall <= 0 ||
		c.Sizing.ThresholdSmall <= c.Sizing.ThresholdVerySmall ||
		c.Sizing.ThresholdMedium <= c.Sizing.ThresholdSmall {
		return &types.ConfigError{Field: "sizing", Msg: "thresholds must be increasing and positive"}
	}
	if c.Chunking.MinChars <= 0 || c.Chunking.MaxChars <= c.Chunking.MinChars {
		return &types.ConfigError{Field: "chunking", Msg: "chunk_max_chars must exceed chunk_min_chars"}
	}
	if c.Chunking.OverlapChars < 0 || c.Chunking.OverlapChars >= c.Chunking.MinChars {
		return &types.ConfigError{Field: "chunking.chunk_overlap_chars", Msg: "overlap must be non-negative and below chunk_min_chars"}
	}
	if c.Chunking.MaxChunksPerDocument <= 0 {
		return &types.ConfigError{Field: "chunking.max_chunks_per_document", Msg: "must be positive"}
	}
	if c.Chunking.SafetyFraction <= 0 || c.Chunking.SafetyFraction > 1 {
		return &types.ConfigError{Field: "chunking.safety_fraction", Msg: "must be in (0,1]"}
	}
	if c.Inference.MaxConcurrentRequests <= 0 {
		return &types.ConfigError{Field: "inference.max_concurrent_requests", Msg: "must be positive"}
	}
	if c.Inference.RequestsPerMinute <= 0 {
		return &types.ConfigError{Field: "inference.requests_per_minute", Msg: "must be positive"}
	}
	if c.Inference.MaxRetries < 0 {
		return &types.ConfigError{Field: "inference.max_retries", Msg: "must be non-negative"}
	}
	if c.Inference.CircuitBreakerFailureThreshold <= 0 {
		return &types.ConfigError{Field: "inference.circuit_breaker_failure_threshold", Msg: "must be positive"}
	}
	switch c.Extract.DedupMode {
	case "exact", "fuzzy":
	case "semantic":
		// Accepted in the schema but not implemented; refuse rather than
		// silently falling back to exact.
		return &types.ConfigError{Field: "extract.dedup_mode", Msg: "semantic dedup is not implemented"}
	default:
		return &types.ConfigError{Field: "extract.dedup_mode", Msg: fmt.Sprintf("unknown mode %q", c.Extract.DedupMode)}
	}
	if c.Extract.DedupSimilarityThreshold < 0 || c.Extract.DedupSimilarityThreshold > 1 {
		return &types.ConfigError{Field: "extract.dedup_similarity_threshold", Msg: "must be in [0,1]"}
	}
	if c.Extract.RelationshipConfidenceFloor < 0 || c.Extract.RelationshipConfidenceFloor > 1 {
		return &types.ConfigError{Field: "extract.relationship_confidence_floor", Msg: "must be in [0,1]"}
	}
	if c.Extract.MaxConcurrentChunks <= 0 {
		return &types.ConfigError{Field: "extract.max_concurrent_chunks", Msg: "must be positive"}
	}
	if c.Resources.GPUMemoryThreshold <= 0 || c.Resources.GPUMemoryThreshold > 1 {
		return &types.ConfigError{Field: "resources.gpu_memory_threshold", Msg: "must be in (0,1]"}
	}
	return nil
}

// RequestTimeout returns the per-HTTP-call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Inference.RequestTimeoutSeconds) * time.Second
}

// ExtractionDeadline returns the overall deadline as a duration.
func (c *Config) ExtractionDeadline() time.Duration {
	return time.Duration(c.Extract.ExtractionDeadlineSeconds) * time.Second
}

// WaveTimeout returns the per-wave/per-chunk timeout as a duration.
func (c *Config) WaveTimeout() time.Duration {
	return time.Duration(c.Extract.WaveTimeoutSeconds) * time.Second
}
