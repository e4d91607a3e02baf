package model

import "time"

// Config is the complete fishchain configuration.
// Field tags serve yaml.v3 for config show/init and mapstructure for viper.
type Config struct {
	Elicitation  ElicitationConfig  `yaml:"elicitation" mapstructure:"elicitation"`
	Interval     IntervalConfig     `yaml:"interval" mapstructure:"interval"`
	Bonus        BonusConfig        `yaml:"bonus" mapstructure:"bonus"`
	Chain        ChainConfig        `yaml:"chain" mapstructure:"chain"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Conditions   string             `yaml:"conditions,omitempty" mapstructure:"conditions"` // Optional YAML condition table
}

// ElicitationConfig selects the widget variant
type ElicitationConfig struct {
	Mode               Mode    `yaml:"mode" mapstructure:"mode"`
	Min                float64 `yaml:"min" mapstructure:"min"`
	Max                float64 `yaml:"max" mapstructure:"max"`
	ConfidenceMin      float64 `yaml:"confidence_min" mapstructure:"confidence_min"`
	ConfidenceMax      float64 `yaml:"confidence_max" mapstructure:"confidence_max"`
	FixedTotal         float64 `yaml:"fixed_total" mapstructure:"fixed_total"`             // 0 disables the sum check
	RevealLimit        int     `yaml:"reveal_limit" mapstructure:"reveal_limit"`           // 0 disables reveal toggling
	RevealByDefault    bool    `yaml:"reveal_by_default" mapstructure:"reveal_by_default"` // Initial reveal state of every slot
	ConfidenceRequired bool    `yaml:"confidence_required" mapstructure:"confidence_required"`
	Epsilon            float64 `yaml:"epsilon" mapstructure:"epsilon"` // Redistributed when lowering a maxed fraction
}

// IntervalConfig selects and parameterizes the credible-interval policy
type IntervalConfig struct {
	Policy       string  `yaml:"policy" mapstructure:"policy"` // equal-tail, hdi, size-transform
	LowTail      float64 `yaml:"low_tail" mapstructure:"low_tail"`
	HighTail     float64 `yaml:"high_tail" mapstructure:"high_tail"`
	Coverage     float64 `yaml:"coverage" mapstructure:"coverage"`
	Step         float64 `yaml:"step" mapstructure:"step"`
	Smoothing    float64 `yaml:"smoothing" mapstructure:"smoothing"`         // equal-tail: 0, 1/3 or 1
	HDISmoothing float64 `yaml:"hdi_smoothing" mapstructure:"hdi_smoothing"` // hdi: usually 1
	SizeScale    float64 `yaml:"size_scale" mapstructure:"size_scale"`       // size-transform: n = 2^(c/scale)
	DefaultSize  float64 `yaml:"default_size" mapstructure:"default_size"`   // Used when confidence is withheld
}

// BonusConfig maps effective sample size to tiers (ascending thresholds)
type BonusConfig struct {
	Small  float64 `yaml:"small" mapstructure:"small"`
	Medium float64 `yaml:"medium" mapstructure:"medium"`
	Large  float64 `yaml:"large" mapstructure:"large"`
}

// ChainConfig configures the chain-assignment service client
type ChainConfig struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures interval memoization
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// ConcurrencyConfig configures batch scoring
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits outbound requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	JSON    bool `yaml:"json" mapstructure:"json"`
}

// LoggingConfig controls structured diagnostics
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the count-mode, reveal-limited message widget
// with a 95% equal-tail interval.
func DefaultConfig() *Config {
	return &Config{
		Elicitation: ElicitationConfig{
			Mode:               ModeCount,
			Min:                1,
			Max:                20,
			ConfidenceMin:      1,
			ConfidenceMax:      15,
			FixedTotal:         0,
			RevealLimit:        0,
			RevealByDefault:    true,
			ConfidenceRequired: false,
			Epsilon:            0.001,
		},
		Interval: IntervalConfig{
			Policy:       "equal-tail",
			LowTail:      0.025,
			HighTail:     0.975,
			Coverage:     0.5,
			Step:         0.01,
			Smoothing:    0,
			HDISmoothing: 1,
			SizeScale:    10,
			DefaultSize:  1,
		},
		Bonus: BonusConfig{
			Small:  5,
			Medium: 15,
			Large:  30,
		},
		Chain: ChainConfig{
			BaseURL:    "https://chains-api-21415a7171bd.herokuapp.com",
			Timeout:    15 * time.Second,
			UserAgent:  "fishchain/0.1",
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             10 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Output: OutputConfig{
			Verbose: false,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
