// Package config holds the snprisk settings read from ~/.snprisk.yaml, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/M0-Anwar/diseases-detection/internal/boost"
	"github.com/M0-Anwar/diseases-detection/internal/person"
	"github.com/M0-Anwar/diseases-detection/internal/snp"
)

// FileName is the configuration file looked up in the home directory.
const FileName = ".snprisk.yaml"

// EnvPrefix prefixes environment overrides, e.g. SNPRISK_LOG_LEVEL.
const EnvPrefix = "SNPRISK"

// Config is the full set of settings.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Workers int           `mapstructure:"workers" yaml:"workers"`
	Predict PredictConfig `mapstructure:"predict" yaml:"predict"`
	Train   TrainConfig   `mapstructure:"train" yaml:"train"`
	Variant BoostConfig   `mapstructure:"variant" yaml:"variant"`
	Person  BoostConfig   `mapstructure:"person" yaml:"person"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LogConfig selects the log level and encoding (console or json).
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PredictConfig controls how genomes are scored.
type PredictConfig struct {
	Threshold  float64 `mapstructure:"threshold" yaml:"threshold"`
	Inclusive  bool    `mapstructure:"inclusive" yaml:"inclusive"`
	Imputation string  `mapstructure:"imputation" yaml:"imputation"`
}

// TrainConfig controls splitting and the relevance rule used when building
// person features.
type TrainConfig struct {
	Inclusive bool    `mapstructure:"inclusive" yaml:"inclusive"`
	Seed      int64   `mapstructure:"seed" yaml:"seed"`
	TestSize  float64 `mapstructure:"test_size" yaml:"test_size"`
}

// BoostConfig holds the tunable booster parameters of one stage.
type BoostConfig struct {
	NEstimators     int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	MaxDepth        int     `mapstructure:"max_depth" yaml:"max_depth"`
	LearningRate    float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	Subsample       float64 `mapstructure:"subsample" yaml:"subsample"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" yaml:"colsample_bytree"`
}

// StoreConfig locates the DuckDB prediction store. An empty path disables it.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

func boostConfig(p boost.Params) BoostConfig {
	return BoostConfig{
		NEstimators:     p.NEstimators,
		MaxDepth:        p.MaxDepth,
		LearningRate:    p.LearningRate,
		Subsample:       p.Subsample,
		ColsampleByTree: p.ColsampleByTree,
	}
}

// Default returns the built-in settings.
func Default() *Config {
	v := snp.DefaultOptions()
	p := person.DefaultOptions()
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Predict: PredictConfig{
			Threshold:  snp.PredictionThreshold.Value,
			Inclusive:  snp.PredictionThreshold.Inclusive,
			Imputation: "query",
		},
		Train: TrainConfig{
			Inclusive: snp.TrainingThreshold.Inclusive,
			Seed:      v.Seed,
			TestSize:  v.TestSize,
		},
		Variant: boostConfig(v.Params),
		Person:  boostConfig(p.Params),
	}
}

// SetDefaults registers every key with its default so that environment
// variables and Unmarshal see all of them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("predict.threshold", d.Predict.Threshold)
	v.SetDefault("predict.inclusive", d.Predict.Inclusive)
	v.SetDefault("predict.imputation", d.Predict.Imputation)
	v.SetDefault("train.inclusive", d.Train.Inclusive)
	v.SetDefault("train.seed", d.Train.Seed)
	v.SetDefault("train.test_size", d.Train.TestSize)
	for _, stage := range []struct {
		key string
		b   BoostConfig
	}{{"variant", d.Variant}, {"person", d.Person}} {
		v.SetDefault(stage.key+".n_estimators", stage.b.NEstimators)
		v.SetDefault(stage.key+".max_depth", stage.b.MaxDepth)
		v.SetDefault(stage.key+".learning_rate", stage.b.LearningRate)
		v.SetDefault(stage.key+".subsample", stage.b.Subsample)
		v.SetDefault(stage.key+".colsample_bytree", stage.b.ColsampleByTree)
	}
	v.SetDefault("store.path", d.Store.Path)
}

// DefaultPath returns ~/.snprisk.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads settings into v and decodes them. Precedence is flags bound to
// v, then SNPRISK_* variables, then the config file, then defaults. An
// explicit path must exist; the default file is optional.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			switch {
			case explicit:
				return nil, fmt.Errorf("read config file: %w", err)
			case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			default:
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Predict.Threshold < 0 || c.Predict.Threshold > 1 {
		return fmt.Errorf("predict.threshold must be in [0, 1], got %g", c.Predict.Threshold)
	}
	if _, err := snp.ParseImputation(c.Predict.Imputation); err != nil {
		return fmt.Errorf("predict.imputation: %w", err)
	}
	if c.Train.TestSize <= 0 || c.Train.TestSize >= 1 {
		return fmt.Errorf("train.test_size must be in (0, 1), got %g", c.Train.TestSize)
	}
	if err := c.VariantOptions().Params.Validate(); err != nil {
		return fmt.Errorf("variant: %w", err)
	}
	if err := c.PersonOptions().Params.Validate(); err != nil {
		return fmt.Errorf("person: %w", err)
	}
	return nil
}

func (b BoostConfig) apply(p boost.Params, seed int64) boost.Params {
	p.NEstimators = b.NEstimators
	p.MaxDepth = b.MaxDepth
	p.LearningRate = b.LearningRate
	p.Subsample = b.Subsample
	p.ColsampleByTree = b.ColsampleByTree
	p.Seed = seed
	return p
}

// VariantOptions returns the Stage 1 fitting options.
func (c *Config) VariantOptions() snp.Options {
	o := snp.DefaultOptions()
	o.Params = c.Variant.apply(o.Params, c.Train.Seed)
	o.TestSize = c.Train.TestSize
	o.Seed = c.Train.Seed
	return o
}

// PersonOptions returns the Stage 2 fitting options.
func (c *Config) PersonOptions() person.Options {
	o := person.DefaultOptions()
	o.Params = c.Person.apply(o.Params, c.Train.Seed)
	o.TestSize = c.Train.TestSize
	o.Seed = c.Train.Seed
	return o
}

// PredictThreshold returns the relevance rule applied at prediction time.
func (c *Config) PredictThreshold() snp.Threshold {
	return snp.Threshold{Value: c.Predict.Threshold, Inclusive: c.Predict.Inclusive}
}

// TrainThreshold returns the relevance rule applied when building person
// features for training. It shares the prediction cut-off value.
func (c *Config) TrainThreshold() snp.Threshold {
	return snp.Threshold{Value: c.Predict.Threshold, Inclusive: c.Train.Inclusive}
}

// Imputation returns the configured imputation mode. Validate has already
// rejected unknown names.
func (c *Config) Imputation() snp.Imputation {
	m, _ := snp.ParseImputation(c.Predict.Imputation)
	return m
}
