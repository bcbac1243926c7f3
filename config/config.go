// Package config loads the autotag configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/autotag/entity"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/logging"
	"github.com/poiesic/autotag/retag"
	"github.com/poiesic/autotag/similarity"
	"github.com/poiesic/autotag/tagging"
	"github.com/poiesic/autotag/text"
)

// Lemmatizer names.
const (
	LemmatizerDictionary = "dictionary"
	LemmatizerSnowball   = "snowball"
)

// DefaultStoragePath is where the database lives when nothing else is configured.
const DefaultStoragePath = "./autotag-data"

// Config holds the autotag configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	NLP       NLPConfig       `yaml:"nlp"`
	Entity    EntityConfig    `yaml:"entity"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retag     RetagConfig     `yaml:"retag"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// NLPConfig holds tagging and similarity settings.
type NLPConfig struct {
	MaxKeywords              int     `yaml:"max_keywords"`
	MinKeywordLength         int     `yaml:"min_keyword_length"`
	MaxTags                  int     `yaml:"max_tags"`
	SimilarityThreshold      float64 `yaml:"similarity_threshold"`
	SimilarLimit             int     `yaml:"similar_limit"`
	SimilarityMinTokenLength int     `yaml:"similarity_min_token_length"`
	Lemmatizer               string  `yaml:"lemmatizer"` // dictionary, snowball
}

// EntityConfig holds entity recognizer settings.
type EntityConfig struct {
	Backend   string `yaml:"backend"` // prose, openai, none
	ModelPath string `yaml:"model_path"`
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	Token     string `yaml:"token"`
}

// IngestionConfig holds file ingestion settings.
type IngestionConfig struct {
	PoolSize          int      `yaml:"pool_size"` // 0 = half the CPUs
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// RetagConfig holds re-tagging settings.
type RetagConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	PoolSize   int           `yaml:"pool_size"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in configuration.
func Default() *Config {
	ent := entity.DefaultConfig()
	rt := retag.DefaultConfig()
	return &Config{
		Storage: StorageConfig{Path: DefaultStoragePath},
		NLP: NLPConfig{
			MaxKeywords:              tagging.DefaultMaxKeywords,
			MinKeywordLength:         tagging.DefaultMinKeywordLength,
			MaxTags:                  tagging.DefaultMaxTags,
			SimilarityThreshold:      0.3,
			SimilarLimit:             5,
			SimilarityMinTokenLength: similarity.DefaultMinTokenLength,
			Lemmatizer:               LemmatizerDictionary,
		},
		Entity: EntityConfig{
			Backend: string(ent.Backend),
			Host:    ent.Host,
			Model:   ent.Model,
			Token:   ent.Token,
		},
		Ingestion: IngestionConfig{
			MaxFileSize:       ingestion.DefaultMaxFileSize,
			AllowedExtensions: slices.Clone(ingestion.DefaultAllowedExtensions),
		},
		Retag: RetagConfig{
			BatchSize:  rt.BatchSize,
			PoolSize:   rt.PoolSize,
			MaxRetries: rt.MaxRetries,
			RetryDelay: rt.RetryDelay,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// Load reads configuration from a YAML file. Keys missing from the file keep
// their Default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR} or ${VAR:-default}
	data = expandEnvVars(data)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills fields an explicit empty value would break.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Storage.Path == "" && !c.Storage.InMemory {
		c.Storage.Path = d.Storage.Path
	}
	if c.NLP.Lemmatizer == "" {
		c.NLP.Lemmatizer = d.NLP.Lemmatizer
	}
	if c.Entity.Backend == "" {
		c.Entity.Backend = d.Entity.Backend
	}
	if c.Ingestion.MaxFileSize <= 0 {
		c.Ingestion.MaxFileSize = d.Ingestion.MaxFileSize
	}
	if len(c.Ingestion.AllowedExtensions) == 0 {
		c.Ingestion.AllowedExtensions = d.Ingestion.AllowedExtensions
	}
	if c.Retag.BatchSize <= 0 {
		c.Retag.BatchSize = d.Retag.BatchSize
	}
	if c.Retag.PoolSize <= 0 {
		c.Retag.PoolSize = d.Retag.PoolSize
	}
	if c.Retag.MaxRetries <= 0 {
		c.Retag.MaxRetries = d.Retag.MaxRetries
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	n := c.NLP
	if n.MaxKeywords < 1 {
		return fmt.Errorf("nlp.max_keywords must be positive, got %d", n.MaxKeywords)
	}
	if n.MinKeywordLength < 1 {
		return fmt.Errorf("nlp.min_keyword_length must be positive, got %d", n.MinKeywordLength)
	}
	if n.MaxTags < 0 {
		return fmt.Errorf("nlp.max_tags must not be negative, got %d", n.MaxTags)
	}
	if n.SimilarityThreshold < 0 || n.SimilarityThreshold > 1 {
		return fmt.Errorf("nlp.similarity_threshold must be between 0 and 1, got %g", n.SimilarityThreshold)
	}
	if n.SimilarLimit < 0 {
		return fmt.Errorf("nlp.similar_limit must not be negative, got %d", n.SimilarLimit)
	}
	if n.SimilarityMinTokenLength < 1 {
		return fmt.Errorf("nlp.similarity_min_token_length must be positive, got %d", n.SimilarityMinTokenLength)
	}
	switch n.Lemmatizer {
	case LemmatizerDictionary, LemmatizerSnowball:
		// ok
	default:
		return fmt.Errorf("nlp.lemmatizer must be %q or %q, got %q", LemmatizerDictionary, LemmatizerSnowball, n.Lemmatizer)
	}

	if err := c.EntityConfig().Validate(); err != nil {
		return err
	}

	if c.Ingestion.PoolSize < 0 {
		return fmt.Errorf("ingestion.pool_size must not be negative, got %d", c.Ingestion.PoolSize)
	}
	if c.Retag.RetryDelay < 0 {
		return fmt.Errorf("retag.retry_delay must not be negative, got %s", c.Retag.RetryDelay)
	}

	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatConsole:
		// ok
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", logging.FormatJSON, logging.FormatConsole, c.Logging.Format)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// EntityConfig converts the entity section into a normalized entity.Config.
func (c *Config) EntityConfig() *entity.Config {
	cfg := entity.NewConfig(
		entity.WithBackend(entity.Backend(c.Entity.Backend)),
		entity.WithModelPath(c.Entity.ModelPath),
		entity.WithHost(c.Entity.Host),
		entity.WithModel(c.Entity.Model),
		entity.WithToken(c.Entity.Token),
	)
	cfg.Normalize()
	return cfg
}

// TaggerOptions converts the nlp section into tagger options.
func (c *Config) TaggerOptions() []tagging.Option {
	return []tagging.Option{
		tagging.WithMaxKeywords(c.NLP.MaxKeywords),
		tagging.WithMinKeywordLength(c.NLP.MinKeywordLength),
		tagging.WithMaxTags(c.NLP.MaxTags),
		tagging.WithNormalizer(text.NewNormalizer(
			text.WithMinTokenLength(c.NLP.MinKeywordLength),
			text.WithLemmatizer(c.Lemmatizer()),
		)),
	}
}

// SimilarityEngine builds the engine the nlp section describes.
func (c *Config) SimilarityEngine() *similarity.Engine {
	return similarity.NewEngine(similarity.WithNormalizer(text.NewNormalizer(
		text.WithMinTokenLength(c.NLP.SimilarityMinTokenLength),
		text.WithLemmatizer(c.Lemmatizer()),
	)))
}

// Lemmatizer returns the configured lemmatizer.
func (c *Config) Lemmatizer() text.Lemmatizer {
	if c.NLP.Lemmatizer == LemmatizerSnowball {
		return text.NewSnowballStemmer()
	}
	return text.NewDictionaryLemmatizer()
}

// RetagConfig converts the retag section.
func (c *Config) RetagConfig() *retag.Config {
	cfg := retag.DefaultConfig()
	cfg.BatchSize = c.Retag.BatchSize
	cfg.PoolSize = c.Retag.PoolSize
	cfg.MaxRetries = c.Retag.MaxRetries
	cfg.RetryDelay = c.Retag.RetryDelay
	return cfg
}

// LoggingOptions converts the logging section.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format}
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		if val, ok := os.LookupEnv(name); ok && (val != "" || !hasDefault) {
			return []byte(val)
		}
		return []byte(def)
	})
}
