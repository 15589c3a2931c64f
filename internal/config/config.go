package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port         string `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
		Mode         string `yaml:"mode" env:"SERVER_MODE" env-default:"development"`
		StoragePath  string `yaml:"storage_path" env:"SERVER_STORAGE_PATH" env-default:"uploads"`
		ReadTimeout  string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
		WriteTimeout string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"120s"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
		Port            string `yaml:"port" env:"DB_PORT" env-default:"5432"`
		User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
		Password        string `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
		DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"credittransfer"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"20"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
		MigrationsPath  string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH" env-default:"migrations"`
		Seed            bool   `yaml:"seed" env:"DB_SEED" env-default:"true"`
		SeedPassword    string `yaml:"-" env:"DB_SEED_PASSWORD" env-default:"password123"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION" env-default:"1h"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER" env-default:"credittransfer.app"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
	} `yaml:"logging"`

	Embedding struct {
		Provider   string `yaml:"provider" env:"EMBEDDING_PROVIDER" env-default:"local"`
		Endpoint   string `yaml:"endpoint" env:"EMBEDDING_ENDPOINT"`
		Model      string `yaml:"model" env:"EMBEDDING_MODEL"`
		APIKey     string `yaml:"-" env:"EMBEDDING_API_KEY"`
		TaskType   string `yaml:"task_type" env:"EMBEDDING_TASK_TYPE" env-default:"SEMANTIC_SIMILARITY"`
		Dimensions int    `yaml:"dimensions" env:"EMBEDDING_DIMENSIONS" env-default:"384"`
		Timeout    string `yaml:"timeout" env:"EMBEDDING_TIMEOUT" env-default:"30s"`
		Warmup     bool   `yaml:"warmup" env:"EMBEDDING_WARMUP" env-default:"true"`
	} `yaml:"embedding"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
		Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
		Password string `yaml:"-" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
		CacheTTL string `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"168h"`
	} `yaml:"redis"`

	Matching struct {
		Concurrency int `yaml:"concurrency" env:"MATCHING_CONCURRENCY" env-default:"4"`
	} `yaml:"matching"`
}

var knownProviders = []string{"local", "ollama", "genai", "openai"}

// LoadConfig loads configuration from an optional .env file, a YAML file and environment variables.
// Environment variables always win over YAML values.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("failed to load from environment: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"database connection lifetime": config.Database.ConnMaxLifetime,
		"embedding timeout":            config.Embedding.Timeout,
		"redis cache ttl":              config.Redis.CacheTTL,
		"server read timeout":          config.Server.ReadTimeout,
		"server write timeout":         config.Server.WriteTimeout,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	provider := strings.ToLower(config.Embedding.Provider)
	known := false
	for _, p := range knownProviders {
		if p == provider {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported embedding provider %q (use one of %s)", config.Embedding.Provider, strings.Join(knownProviders, ", "))
	}
	config.Embedding.Provider = provider

	if config.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}

	if config.Matching.Concurrency <= 0 {
		config.Matching.Concurrency = 1
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}
