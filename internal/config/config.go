package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/store"
	"gopkg.in/yaml.v3"
)

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"

	ClassifierBundled   = "bundled"
	ClassifierAnthropic = "anthropic"
)

const defaultPredictTimeout = 5 * time.Second

// Config holds everything the CLI and server need
type Config struct {
	DataDir        string `yaml:"data_dir"`
	Store          string `yaml:"store"`
	Classifier     string `yaml:"classifier"`
	ModelPath      string `yaml:"model_path"`
	PredictTimeout string `yaml:"predict_timeout"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`

	LogLevel       string `yaml:"log_level"`
	Addr           string `yaml:"addr"`
	Tracing        bool   `yaml:"tracing"`
	RemindSchedule string `yaml:"remind_schedule"`
	Timezone       string `yaml:"timezone"`

	Timeout  time.Duration  `yaml:"-"` // parsed from PredictTimeout
	Location *time.Location `yaml:"-"` // computed from Timezone
}

// DefaultDataDir is ~/.mindspace, or ./.mindspace when no home is known
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mindspace"
	}
	return filepath.Join(home, ".mindspace")
}

// DefaultPath is the config file read when none is given
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load reads path (or MINDSPACE_CONFIG, or DefaultPath), applies MINDSPACE_*
// environment overrides and fills defaults. Only an explicitly named config
// file has to exist.
func Load(path string) (Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		if envPath := os.Getenv("MINDSPACE_CONFIG"); envPath != "" {
			path = envPath
			explicit = true
		} else {
			path = DefaultPath()
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, goerr.Wrap(err, "failed to parse config", goerr.V("path", path))
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}

	applyEnv(&cfg)
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envOverride(&cfg.DataDir, "MINDSPACE_DATA_DIR")
	envOverride(&cfg.Store, "MINDSPACE_STORE")
	envOverride(&cfg.Classifier, "MINDSPACE_CLASSIFIER")
	envOverride(&cfg.ModelPath, "MINDSPACE_MODEL_PATH")
	envOverride(&cfg.PredictTimeout, "MINDSPACE_PREDICT_TIMEOUT")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AnthropicModel, "MINDSPACE_ANTHROPIC_MODEL")
	envOverride(&cfg.LogLevel, "MINDSPACE_LOG_LEVEL")
	envOverride(&cfg.Addr, "MINDSPACE_ADDR")
	envOverrideBool(&cfg.Tracing, "MINDSPACE_TRACING")
	envOverride(&cfg.RemindSchedule, "MINDSPACE_REMIND_SCHEDULE")
	envOverride(&cfg.Timezone, "MINDSPACE_TIMEZONE")
}

func (c *Config) finalize() error {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Store == "" {
		c.Store = StoreJSON
	}
	if c.Classifier == "" {
		c.Classifier = ClassifierBundled
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RemindSchedule == "" {
		c.RemindSchedule = "0 21 * * *"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}

	c.Store = strings.ToLower(c.Store)
	if c.Store != StoreJSON && c.Store != StoreSQLite {
		return goerr.New("store must be 'json' or 'sqlite'", goerr.V("store", c.Store))
	}

	c.Classifier = strings.ToLower(c.Classifier)
	switch c.Classifier {
	case ClassifierBundled:
	case ClassifierAnthropic:
		if c.AnthropicAPIKey == "" {
			return goerr.New("anthropic_api_key is required when classifier=anthropic")
		}
	default:
		return goerr.New("classifier must be 'bundled' or 'anthropic'", goerr.V("classifier", c.Classifier))
	}

	c.Timeout = defaultPredictTimeout
	if c.PredictTimeout != "" {
		d, err := time.ParseDuration(c.PredictTimeout)
		if err != nil {
			return goerr.Wrap(err, "invalid predict_timeout", goerr.V("value", c.PredictTimeout))
		}
		if d < 0 {
			return goerr.New("predict_timeout must not be negative", goerr.V("value", c.PredictTimeout))
		}
		c.Timeout = d
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return goerr.Wrap(err, "invalid timezone", goerr.V("timezone", c.Timezone))
		}
		c.Location = loc
	}
	return nil
}

// HistoryPath is the JSON backing file
func (c Config) HistoryPath() string {
	return filepath.Join(c.DataDir, store.FileName)
}

// DBPath is the SQLite database file
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, store.DBFileName)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
