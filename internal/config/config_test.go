package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M0-Anwar/diseases-detection/internal/snp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snprisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, snp.PredictionThreshold, c.PredictThreshold())
	assert.Equal(t, snp.TrainingThreshold, c.TrainThreshold())
	assert.Equal(t, snp.QueryMedians, c.Imputation())
	assert.Equal(t, snp.DefaultOptions().Params, c.VariantOptions().Params)
	assert.Equal(t, 0.05, c.PersonOptions().Params.LearningRate)
	assert.Equal(t, 0.8, c.PersonOptions().Params.Subsample)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
workers: 3
predict:
  inclusive: true
  imputation: training
variant:
  n_estimators: 20
  max_depth: 3
store:
  path: /tmp/preds.duckdb
`)

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, 3, c.Workers)
	assert.True(t, c.PredictThreshold().Inclusive)
	assert.Equal(t, snp.TrainingMedians, c.Imputation())
	assert.Equal(t, 20, c.VariantOptions().Params.NEstimators)
	assert.Equal(t, 3, c.VariantOptions().Params.MaxDepth)
	assert.Equal(t, 0.1, c.VariantOptions().Params.LearningRate)
	assert.Equal(t, "/tmp/preds.duckdb", c.Store.Path)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "train:\n  seed: 7\n")
	t.Setenv("SNPRISK_TRAIN_SEED", "11")
	t.Setenv("SNPRISK_PERSON_MAX_DEPTH", "2")

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(11), c.Train.Seed)
	assert.Equal(t, int64(11), c.VariantOptions().Seed)
	assert.Equal(t, int64(11), c.PersonOptions().Params.Seed)
	assert.Equal(t, 2, c.PersonOptions().Params.MaxDepth)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := []struct {
		name string
		body string
	}{
		{"log format", "log:\n  format: xml\n"},
		{"threshold", "predict:\n  threshold: 1.5\n"},
		{"imputation", "predict:\n  imputation: mean\n"},
		{"test size", "train:\n  test_size: 0\n"},
		{"booster", "person:\n  subsample: 0\n"},
		{"workers", "workers: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.body))
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		l, err := NewLogger(LogConfig{Level: "warn", Format: format})
		require.NoError(t, err, format)
		assert.False(t, l.Core().Enabled(-1))
		assert.True(t, l.Core().Enabled(1))
	}

	_, err := NewLogger(LogConfig{Format: "xml"})
	assert.Error(t, err)
	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
