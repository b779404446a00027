package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-match/internal/constants"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL   string // embedding server base URL, defaults to http://localhost:8000
	Model string // embedding model name, defaults to dlib
	Dim   int    // embedding vector dimension, defaults to 128
}

type MatchConfig struct {
	Threshold float64 // maximum Euclidean distance for a match; 0 = model default from thresholds.yaml
}

type WorkerConfig struct {
	PoolSize int // bulk pipeline worker count (default 4)
}

type StorageConfig struct {
	DataDir     string // processed-output directory for the filesystem result store
	DatabaseURL string // PostgreSQL connection URL; empty = in-memory gallery, filesystem results
	MaxConns    int    // maximum pool connections (default 25)
}

type ModelsConfig struct {
	Models map[string]ModelDefaults `yaml:"models"`
}

type ModelDefaults struct {
	Dim       int     `yaml:"dim"`
	Threshold float64 `yaml:"threshold"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	cfg := &Config{
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("EMBEDDING_URL"),
			Model: envString("EMBEDDING_MODEL", constants.DefaultEmbeddingModel),
			Dim:   envInt("EMBEDDING_DIM", 0),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0),
		},
		Worker: WorkerConfig{
			PoolSize: envInt("WORKER_POOL_SIZE", constants.WorkerPoolSize),
		},
		Storage: StorageConfig{
			DataDir:     envString("DATA_DIR", "processed"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			MaxConns:    envInt("DATABASE_MAX_CONNS", 25),
		},
		Models: models,
	}

	// Unset dimension and threshold fall back to the model defaults so a
	// bare EMBEDDING_MODEL=arcface picks up both.
	defaults := cfg.ModelDefaults(cfg.Embedding.Model)
	if cfg.Embedding.Dim == 0 {
		cfg.Embedding.Dim = defaults.Dim
	}
	if cfg.Match.Threshold == 0 {
		cfg.Match.Threshold = defaults.Threshold
	}

	return cfg
}

// ModelDefaults returns the embedded defaults for a model name, falling back
// to the dlib profile for unknown models.
func (c *Config) ModelDefaults(modelName string) ModelDefaults {
	if d, ok := c.Models.Models[modelName]; ok {
		return d
	}
	return ModelDefaults{
		Dim:       constants.DefaultEmbeddingDim,
		Threshold: constants.DefaultDistanceThreshold,
	}
}
