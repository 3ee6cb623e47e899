package confs

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Address        string `koanf:"address"`
	AllowedOrigins string `koanf:"allowed_origins"` // comma separated, "*" allows all
}

type DatabaseConfig struct {
	URL          string `koanf:"url"`
	Host         string `koanf:"host"`
	Port         string `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	SSLMode      string `koanf:"sslmode"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	LogLevel     string `koanf:"log_level"` // silent, error, warn, info
}

type AuthConfig struct {
	SecretKey                string `koanf:"secret_key"`
	Algorithm                string `koanf:"algorithm"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes"`
	BcryptCost               int    `koanf:"bcrypt_cost"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// envMappings maps environment variables onto koanf paths. Variables not listed are ignored.
var envMappings = map[string]string{
	"SERVER_ADDRESS":              "server.address",
	"CORS_ALLOWED_ORIGINS":        "server.allowed_origins",
	"DATABASE_URL":                "database.url",
	"DB_URL":                      "database.url",
	"DB_HOST":                     "database.host",
	"DB_PORT":                     "database.port",
	"DB_USER":                     "database.user",
	"DB_PASSWORD":                 "database.password",
	"DB_NAME":                     "database.name",
	"DB_SSLMODE":                  "database.sslmode",
	"DB_MAX_IDLE_CONNS":           "database.max_idle_conns",
	"DB_MAX_OPEN_CONNS":           "database.max_open_conns",
	"DB_LOG_LEVEL":                "database.log_level",
	"SECRET_KEY":                  "auth.secret_key",
	"ALGORITHM":                   "auth.algorithm",
	"ACCESS_TOKEN_EXPIRE_MINUTES": "auth.access_token_expire_minutes",
	"BCRYPT_COST":                 "auth.bcrypt_cost",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
}

// Defaults returns the built-in configuration. SecretKey is intentionally empty.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:        "0.0.0.0:8000",
			AllowedOrigins: "*",
		},
		Database: DatabaseConfig{
			MaxIdleConns: 10,
			MaxOpenConns: 100,
			LogLevel:     "warn",
		},
		Auth: AuthConfig{
			Algorithm:                "HS256",
			AccessTokenExpireMinutes: 30,
			BcryptCost:               bcrypt.DefaultCost,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadEnvFile loads environment variables from a .env file if present.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		// a missing .env is normal outside local development
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load layers environment variables over Defaults and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(key string) string {
	return envMappings[key]
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return errors.New("SECRET_KEY environment variable is not set")
	}
	if !strings.EqualFold(c.Auth.Algorithm, "HS256") {
		return fmt.Errorf("unsupported token algorithm %q: only HS256 is supported", c.Auth.Algorithm)
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.Auth.AccessTokenExpireMinutes)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.Server.Address == "" {
		return errors.New("SERVER_ADDRESS must not be empty")
	}
	return nil
}

// Origins returns the configured CORS origins. An empty slice means all origins.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			return nil
		}
		out = append(out, o)
	}
	return out
}

// String returns a representation of the config with secrets masked.
func (c *Config) String() string {
	db := c.Database.Host
	if c.Database.URL != "" {
		db = "url:***"
	}
	return fmt.Sprintf("Config{Server: %s, DB: %s, TokenTTL: %dm, Auth: *** (masked) ***}",
		c.Server.Address, db, c.Auth.AccessTokenExpireMinutes)
}
