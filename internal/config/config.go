// Package config loads assistant configuration from defaults, an optional
// YAML file, a .env file and SITEASSIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SITEASSIST_SERVER_PORT.
const EnvPrefix = "SITEASSIST"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SiteConfig describes the marketing site being indexed.
type SiteConfig struct {
	// Origin is the canonical origin relative citation links are resolved against.
	Origin    string `mapstructure:"origin"`
	ScrapeURL string `mapstructure:"scrape_url"`
}

// DataConfig locates the scraped corpus and the persisted index pair.
type DataConfig struct {
	Dir         string `mapstructure:"dir"`
	ScrapedText string `mapstructure:"scraped_text"`
	ScrapedJSON string `mapstructure:"scraped_json"`
	IndexPath   string `mapstructure:"index_path"`
	MetaPath    string `mapstructure:"meta_path"`
}

// LockPath is the file used to serialize index builds across processes.
func (d DataConfig) LockPath() string {
	return filepath.Join(d.Dir, ".build.lock")
}

// IndexConfig selects where the index snapshot is persisted.
type IndexConfig struct {
	Store        string `mapstructure:"store"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	SnapshotName string `mapstructure:"snapshot_name"`
	DefaultK     int    `mapstructure:"default_k"`
}

// EmbeddingConfig selects the embedding backend and its model ladder.
type EmbeddingConfig struct {
	Provider string   `mapstructure:"provider"`
	Models   []string `mapstructure:"models"`
	// CacheSize bounds the in-memory embedding cache. Zero disables it.
	CacheSize int `mapstructure:"cache_size"`
}

// GenerationConfig selects the generation backend and its model ladder.
type GenerationConfig struct {
	Provider    string   `mapstructure:"provider"`
	Models      []string `mapstructure:"models"`
	Temperature float64  `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Generative Language API settings.
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OllamaConfig holds the Ollama host and embedding retry policy. An empty
// host means OLLAMA_HOST / localhost.
type OllamaConfig struct {
	Host         string        `mapstructure:"host"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ClientConfig configures the question CLI's fallback chain.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	K         int           `mapstructure:"k"`
	LocalK    int           `mapstructure:"local_k"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Site       SiteConfig       `mapstructure:"site"`
	Data       DataConfig       `mapstructure:"data"`
	Index      IndexConfig      `mapstructure:"index"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Generation GenerationConfig `mapstructure:"generation"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Log        LogConfig        `mapstructure:"log"`
	Client     ClientConfig     `mapstructure:"client"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8888)

	v.SetDefault("site.origin", "http://localhost:8888")
	v.SetDefault("site.scrape_url", "http://localhost:8888/")

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.scraped_text", "")
	v.SetDefault("data.scraped_json", "")
	v.SetDefault("data.index_path", "")
	v.SetDefault("data.meta_path", "")

	v.SetDefault("index.store", "file")
	v.SetDefault("index.postgres_dsn", "")
	v.SetDefault("index.snapshot_name", "site")
	v.SetDefault("index.default_k", 4)

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.models", []string{"textembedding-005", "text-embedding-004"})
	v.SetDefault("embedding.cache_size", 512)

	v.SetDefault("generation.provider", "gemini")
	v.SetDefault("generation.models", []string{"gemini-2.5-flash-lite", "gemini-1.5-flash"})
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.max_tokens", 1024)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.timeout", 60*time.Second)

	v.SetDefault("ollama.host", "")
	v.SetDefault("ollama.max_retries", 3)
	v.SetDefault("ollama.retry_backoff", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("client.server_url", "http://localhost:8888")
	v.SetDefault("client.k", 4)
	v.SetDefault("client.local_k", 3)
	v.SetDefault("client.timeout", 90*time.Second)
}

// Load reads configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind gemini api key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerived fills the data paths that default to files inside Data.Dir.
func (c *Config) applyDerived() {
	if c.Data.ScrapedText == "" {
		c.Data.ScrapedText = filepath.Join(c.Data.Dir, "scraped.txt")
	}
	if c.Data.ScrapedJSON == "" {
		c.Data.ScrapedJSON = filepath.Join(c.Data.Dir, "scraped.json")
	}
	if c.Data.IndexPath == "" {
		c.Data.IndexPath = filepath.Join(c.Data.Dir, "site.index")
	}
	if c.Data.MetaPath == "" {
		c.Data.MetaPath = filepath.Join(c.Data.Dir, "site_meta.json")
	}
}

// Validate checks for settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Index.Store {
	case "file":
	case "postgres":
		if c.Index.PostgresDSN == "" {
			errs = append(errs, errors.New("index.postgres_dsn is required when index.store is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown index.store %q", c.Index.Store))
	}
	if len(c.Embedding.Models) == 0 {
		errs = append(errs, errors.New("embedding.models must list at least one model"))
	}
	if len(c.Generation.Models) == 0 {
		errs = append(errs, errors.New("generation.models must list at least one model"))
	}
	if c.Ollama.MaxRetries < 0 {
		errs = append(errs, errors.New("ollama.max_retries must not be negative"))
	}
	if c.Index.DefaultK <= 0 {
		errs = append(errs, errors.New("index.default_k must be positive"))
	}
	return errors.Join(errs...)
}
