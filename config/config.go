// Package config loads splitembed settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/chunker"
	"github.com/poiesic/splitembed/splitter"
	"gopkg.in/yaml.v3"
)

// Environment variables merged over file values.
const (
	EnvBackend        = "SPLITEMBED_BACKEND"
	EnvEmbeddingHost  = "SPLITEMBED_EMBEDDING_HOST"
	EnvEmbeddingModel = "SPLITEMBED_EMBEDDING_MODEL"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvAzureKey       = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint  = "AZURE_OPENAI_ENDPOINT"
)

// ErrConfigFile is returned when a config file cannot be read or parsed.
var ErrConfigFile = errors.New("config file error")

// Config is the file representation of splitembed settings.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Backend           string        `yaml:"backend"`
	Host              string        `yaml:"host"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	APIVersion        string        `yaml:"api_version"`
	Dimensions        int           `yaml:"dimensions"`
	BatchSize         int           `yaml:"batch_size"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	StripNewLines     *bool         `yaml:"strip_newlines"`
}

// ChunkingConfig controls sentence splitting and chunk assembly.
type ChunkingConfig struct {
	ChunkSize     int      `yaml:"chunk_size"`
	ChunkOverlap  int      `yaml:"chunk_overlap"`
	Unit          string   `yaml:"unit"`
	Encoding      string   `yaml:"encoding"`
	Abbreviations []string `yaml:"abbreviations"`
}

// DefaultLocations lists the files Load tries when no path is given.
func DefaultLocations() []string {
	locations := []string{
		"splitembed.yaml",
		"splitembed.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "splitembed", "config.yaml"))
	}
	return locations
}

// Load reads the config file at path. With an empty path the first existing
// file from DefaultLocations is used, or built-in defaults when none exists.
// Environment variables are merged over file values, then defaults fill
// whatever is still unset.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, loc := range DefaultLocations() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrConfigFile, path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrConfigFile, path, err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

// Default returns the built-in configuration with environment overrides.
func Default() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	e := &config.Embedding
	defaults := ai.DefaultConfig()

	if e.Backend == "" {
		e.Backend = string(ai.BackendOpenAI)
	}
	if e.Host == "" {
		switch ai.Backend(e.Backend) {
		case ai.BackendOpenAI:
			e.Host = defaults.EmbeddingHost
		case ai.BackendOllama:
			e.Host = "http://localhost:11434"
		}
	}
	if e.Model == "" && ai.Backend(e.Backend) != ai.BackendAzure {
		e.Model = defaults.EmbeddingModel
	}
	if e.APIVersion == "" && ai.Backend(e.Backend) == ai.BackendAzure {
		e.APIVersion = ai.DefaultAzureAPIVersion
	}
	if e.BatchSize == 0 {
		e.BatchSize = defaults.BatchSize
	}
	if e.Concurrency == 0 {
		e.Concurrency = defaults.Concurrency
	}
	if e.MaxAttempts == 0 {
		e.MaxAttempts = defaults.MaxAttempts
	}
	if e.RetryDelay == 0 {
		e.RetryDelay = defaults.RetryDelay
	}
	if e.StripNewLines == nil {
		strip := defaults.StripNewLines
		e.StripNewLines = &strip
	}

	c := &config.Chunking
	if c.ChunkSize == 0 {
		c.ChunkSize = chunker.DefaultChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = chunker.DefaultChunkOverlap
		}
	}
	if c.Unit == "" {
		c.Unit = splitter.UnitChars
	}
	if c.Encoding == "" {
		c.Encoding = splitter.DefaultEncoding
	}
}

func mergeWithEnv(config *Config) {
	e := &config.Embedding
	if backend := os.Getenv(EnvBackend); backend != "" {
		e.Backend = backend
	}
	if host := os.Getenv(EnvEmbeddingHost); host != "" {
		e.Host = host
	}
	if model := os.Getenv(EnvEmbeddingModel); model != "" {
		e.Model = model
	}

	switch ai.Backend(e.Backend) {
	case ai.BackendAzure:
		if key := os.Getenv(EnvAzureKey); key != "" && e.APIKey == "" {
			e.APIKey = key
		}
		if endpoint := os.Getenv(EnvAzureEndpoint); endpoint != "" && e.Host == "" {
			e.Host = endpoint
		}
	case ai.BackendOpenAI, "":
		if key := os.Getenv(EnvOpenAIKey); key != "" && e.APIKey == "" {
			e.APIKey = key
		}
	}
}

// AIConfig converts the embedding section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	e := c.Embedding
	strip := true
	if e.StripNewLines != nil {
		strip = *e.StripNewLines
	}
	return &ai.Config{
		Backend:           ai.Backend(e.Backend),
		EmbeddingHost:     e.Host,
		EmbeddingModel:    e.Model,
		APIKey:            e.APIKey,
		APIVersion:        e.APIVersion,
		Dimensions:        e.Dimensions,
		BatchSize:         e.BatchSize,
		Concurrency:       e.Concurrency,
		RequestsPerSecond: e.RequestsPerSecond,
		MaxAttempts:       e.MaxAttempts,
		RetryDelay:        e.RetryDelay,
		StripNewLines:     strip,
	}
}

// ChunkSettings returns the chunk size and overlap.
func (c *Config) ChunkSettings() chunker.Settings {
	return chunker.Settings{
		ChunkSize:    c.Chunking.ChunkSize,
		ChunkOverlap: c.Chunking.ChunkOverlap,
	}
}

// LengthFunc returns the length function for the configured unit.
func (c *Config) LengthFunc() (splitter.LengthFunc, error) {
	return splitter.LengthFor(c.Chunking.Unit, c.Chunking.Encoding)
}
