package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the shopping assistant.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	SerpAPI    SerpAPIConfig    `mapstructure:"serpapi"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Reevaluate ReevaluateConfig `mapstructure:"reevaluate"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen   string `mapstructure:"listen"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// SerpAPIConfig configures the shopping-search provider. The API key is
// checked at the point of first use, not at load time.
type SerpAPIConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Engine   string        `mapstructure:"engine"`
	HL       string        `mapstructure:"hl"`
	GL       string        `mapstructure:"gl"`
	Limit    int           `mapstructure:"limit"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	URL       string        `mapstructure:"url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects and configures the session-store backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // file, postgres or redis
	File     FileConfig     `mapstructure:"file"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

func (s StorageConfig) Validate() error {
	switch s.Backend {
	case "", "file":
		return nil
	case "postgres":
		return s.Postgres.Validate()
	case "redis":
		return s.Redis.Validate()
	default:
		return fmt.Errorf("storage.backend must be file, postgres or redis, got %q", s.Backend)
	}
}

// FileConfig contains the JSON file backend settings.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds the connection string from the structured settings.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// ReevaluateConfig controls the batch re-scoring pass.
type ReevaluateConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Cron       string        `mapstructure:"cron"` // empty disables the scheduler
}

// LoadConfig loads config from file and SHOPCHAT_* environment variables.
// Missing provider credentials do not fail the load; adapters report them at
// the point of first use.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.listen", ":8000")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("serpapi.endpoint", "https://serpapi.com/search.json")
	viper.SetDefault("serpapi.engine", "google_shopping")
	viper.SetDefault("serpapi.hl", "ar")
	viper.SetDefault("serpapi.gl", "sa")
	viper.SetDefault("serpapi.limit", 5)
	viper.SetDefault("serpapi.timeout", "30s")
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.file.path", "data_shopping.json")
	viper.SetDefault("reevaluate.max_retries", 5)
	viper.SetDefault("reevaluate.retry_delay", "5s")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SHOPCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
		// env-only runs are fine
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	if err := config.Storage.Validate(); err != nil {
		panic(err)
	}
	return &config
}
