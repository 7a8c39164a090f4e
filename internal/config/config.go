package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".tablescope"

// Global configuration structure.
type Global struct {
	// Classification
	Policy              string   `mapstructure:"policy" yaml:"policy"`
	SampleSize          int      `mapstructure:"sample_size" yaml:"sample_size"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	PatternOrder        []string `mapstructure:"pattern_order" yaml:"pattern_order"`

	// Analysis
	Workers      int  `mapstructure:"workers" yaml:"workers"`
	Charts       bool `mapstructure:"charts" yaml:"charts"`
	Correlations bool `mapstructure:"correlations" yaml:"correlations"`

	// Insights (local Ollama runtime)
	InsightProvider  string `mapstructure:"insight_provider" yaml:"insight_provider"`
	InsightModel     string `mapstructure:"insight_model" yaml:"insight_model"`
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// HTTP/Retry configuration
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Server
	ServerAddr       string `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB      int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	CacheMaxDatasets int    `mapstructure:"cache_max_datasets" yaml:"cache_max_datasets"`

	// Database source defaults for analyze-db
	DBDialect string `mapstructure:"db_dialect" yaml:"db_dialect"`
	DBDSN     string `mapstructure:"db_dsn" yaml:"db_dsn"`
	DBLimit   int    `mapstructure:"db_limit" yaml:"db_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("policy", "semantic_only")
	v.SetDefault("sample_size", 500)
	v.SetDefault("confidence_threshold", 0.7)
	v.SetDefault("pattern_order", []string{})
	v.SetDefault("workers", 0)
	v.SetDefault("charts", true)
	v.SetDefault("correlations", true)
	v.SetDefault("insight_provider", "ollama")
	v.SetDefault("insight_model", "qwen2.5:0.5b")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("cache_max_datasets", 32)
	v.SetDefault("db_dialect", "postgres")
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_limit", 10000)
}

// DefaultPath returns ~/.tablescope/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tablescope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABLESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, DirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Env values for list keys arrive as one comma-separated string.
	if len(c.PatternOrder) == 1 && strings.Contains(c.PatternOrder[0], ",") {
		c.PatternOrder = splitList(c.PatternOrder[0])
	}
	if err := checkSampleSize(c.SampleSize); err != nil {
		return nil, fmt.Errorf("sample_size: %w", err)
	}
	return &c, nil
}

// MaxSampleSize is the most values semantic and datetime detection may inspect.
const MaxSampleSize = 500

func checkSampleSize(n int) error {
	if n < 1 || n > MaxSampleSize {
		return fmt.Errorf("must be between 1 and %d, got %d", MaxSampleSize, n)
	}
	return nil
}

// Defaults returns the built-in configuration without reading files or env.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Keys lists every settable key, sorted.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Set assigns a string value to key, converting it to the field's type.
func (c *Global) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	var err error
	switch key {
	case "policy":
		c.Policy = value
	case "sample_size":
		var n int
		if n, err = cast.ToIntE(value); err == nil {
			if err = checkSampleSize(n); err == nil {
				c.SampleSize = n
			}
		}
	case "confidence_threshold":
		c.ConfidenceThreshold, err = cast.ToFloat64E(value)
		if err == nil && (c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1) {
			err = fmt.Errorf("must be in (0, 1]")
		}
	case "pattern_order":
		c.PatternOrder = splitList(value)
	case "workers":
		c.Workers, err = cast.ToIntE(value)
	case "charts":
		c.Charts, err = cast.ToBoolE(value)
	case "correlations":
		c.Correlations, err = cast.ToBoolE(value)
	case "insight_provider":
		c.InsightProvider = value
	case "insight_model":
		c.InsightModel = value
	case "ollama_host":
		c.OllamaHost = value
	case "ollama_timeout_sec":
		c.OllamaTimeoutSec, err = cast.ToIntE(value)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = cast.ToIntE(value)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = cast.ToIntE(value)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = cast.ToIntE(value)
	case "server_addr":
		c.ServerAddr = value
	case "max_upload_mb":
		c.MaxUploadMB, err = cast.ToIntE(value)
	case "cache_max_datasets":
		c.CacheMaxDatasets, err = cast.ToIntE(value)
	case "db_dialect":
		c.DBDialect = value
	case "db_dsn":
		c.DBDSN = value
	case "db_limit":
		c.DBLimit, err = cast.ToIntE(value)
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
