package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

type Config struct {
	Server     Server
	Provider   Provider
	Storage    Storage
	Preprocess Preprocess

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

type Server struct {
	Host               string        `env:"HOST" envDefault:"0.0.0.0"`
	Port               string        `env:"PORT" envDefault:"8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"150s"`
	ImageFetchTimeout  time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"15s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"52428800"`
	CORSOrigins        []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"https://vaultmycomic.com,https://www.vaultmycomic.com,http://localhost:5173,http://localhost:5177"`
	AllowedImageHosts  []string      `env:"ALLOWED_IMAGE_HOSTS" envSeparator:","`
}

type Provider struct {
	Kind        string        `env:"OPINION_PROVIDER" envDefault:"heuristic"`
	APIKey      string        `env:"OPENAI_API_KEY"`
	Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4.1-mini"`
	BaseURL     string        `env:"OPENAI_BASE_URL"`
	Temperature float64       `env:"OPENAI_TEMPERATURE" envDefault:"0.2"`
	Timeout     time.Duration `env:"OPINION_TIMEOUT" envDefault:"60s"`
	Retries     int           `env:"OPINION_RETRIES" envDefault:"1"`
	RetryDelay  time.Duration `env:"OPINION_RETRY_DELAY" envDefault:"1s"`
	FixturePath string        `env:"OPINION_FIXTURE"`
	Postures    []string      `env:"POSTURES" envSeparator:"," envDefault:"strict,lenient"`
}

type Storage struct {
	Backend        string        `env:"STORAGE_BACKEND" envDefault:"local"`
	Root           string        `env:"STORAGE_ROOT" envDefault:"./data"`
	AzureAccount   string        `env:"AZURE_STORAGE_ACCOUNT"`
	AzureKey       string        `env:"AZURE_STORAGE_KEY"`
	AzureContainer string        `env:"AZURE_STORAGE_CONTAINER" envDefault:"comicvault"`
	IndexDSN       string        `env:"INDEX_DSN" envDefault:"./data/index.db"`
	ResultCacheTTL time.Duration `env:"RESULT_CACHE_TTL" envDefault:"10m"`
}

type Preprocess struct {
	Enabled         bool    `env:"PREPROCESS_ENABLED" envDefault:"true"`
	MaxDimension    int     `env:"PREPROCESS_MAX_DIMENSION" envDefault:"2000"`
	ContrastPercent float64 `env:"PREPROCESS_CONTRAST" envDefault:"5"`
	JPEGQuality     int     `env:"PREPROCESS_JPEG_QUALITY" envDefault:"90"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Server.Host)
	port := strings.TrimSpace(c.Server.Port)
	return net.JoinHostPort(host, port)
}

// ParsedPostures returns the configured ensemble
func (c *Config) ParsedPostures() ([]models.Posture, error) {
	postures := make([]models.Posture, 0, len(c.Provider.Postures))
	for _, raw := range c.Provider.Postures {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := models.ParsePosture(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		postures = append(postures, p)
	}
	if len(postures) == 0 {
		return nil, fmt.Errorf("POSTURES must name at least one posture")
	}
	return postures, nil
}

// LoadFromEnv reads an optional .env file and then the process environment
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFromMap builds a config from explicit variables only
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

// Tool is the subset of settings the command line grader reads. Flags
// override every field.
type Tool struct {
	Provider Provider
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// LoadToolFromEnv reads an optional .env file and then the process environment
func LoadToolFromEnv() (*Tool, error) {
	_ = godotenv.Load()
	return parseTool(env.Options{})
}

// LoadToolFromMap builds tool settings from explicit variables only
func LoadToolFromMap(vars map[string]string) (*Tool, error) {
	return parseTool(env.Options{Environment: vars})
}

func parseTool(opts env.Options) (*Tool, error) {
	var tool Tool
	if err := env.ParseWithOptions(&tool, opts); err != nil {
		return nil, fmt.Errorf("env.Parse: %w", err)
	}
	return &tool, nil
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("env.Parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Server.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Server.Port)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.Server.MaxRequestBodySize)
	}
	if c.Server.RequestTimeout <= 0 || c.Server.ImageFetchTimeout <= 0 || c.Provider.Timeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, opinion=%s)",
			c.Server.RequestTimeout, c.Server.ImageFetchTimeout, c.Provider.Timeout)
	}
	if c.Provider.Retries < 0 {
		return fmt.Errorf("OPINION_RETRIES must be >= 0 (got %d)", c.Provider.Retries)
	}
	if _, err := c.ParsedPostures(); err != nil {
		return err
	}

	switch c.Provider.Kind {
	case "remote":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the remote provider")
		}
	case "fixture":
		if c.Provider.FixturePath == "" {
			return fmt.Errorf("OPINION_FIXTURE is required for the fixture provider")
		}
	case "heuristic":
	default:
		return fmt.Errorf("unknown OPINION_PROVIDER %q", c.Provider.Kind)
	}

	switch c.Storage.Backend {
	case "local":
	case "azure":
		if c.Storage.AzureAccount == "" || c.Storage.AzureKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for azure storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}
