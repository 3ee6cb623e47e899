package db

import (
	"fmt"
	"net/url"

	"safr-server/confs"
	"safr-server/entities"
	"safr-server/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Models lists every table owned by this service, in dependency order.
var Models = []interface{}{
	&entities.User{},
	&entities.City{},
	&entities.CityAttribute{},
	&entities.Ranking{},
}

// Connect opens the postgres database described by cfg and migrates the schema.
func Connect(cfg confs.DatabaseConfig) (Database, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}
	return Open(postgres.Open(dsn), cfg)
}

// Open is Connect for an arbitrary dialector; tests pass sqlite here.
func Open(dialector gorm.Dialector, cfg confs.DatabaseConfig) (Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.GormLogger(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	logging.Info().Str("dialect", dialector.Name()).Msg("database connection established")

	if err := db.AutoMigrate(Models...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logging.Info().Msg("database migrations completed")

	return &GormDatabase{DB: db}, nil
}

// BuildDSN prefers a full connection URL and falls back to individual parameters.
// Remote hosts default to sslmode=require, local ones to disable.
func BuildDSN(cfg confs.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "", fmt.Errorf("invalid database url: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			mode := cfg.SSLMode
			if mode == "" {
				mode = defaultSSLMode(u.Hostname())
			}
			q.Set("sslmode", mode)
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	if cfg.Host == "" || cfg.Port == "" || cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("missing required database configuration: DATABASE_URL or (DB_HOST, DB_PORT, DB_USER, DB_NAME)")
	}
	mode := cfg.SSLMode
	if mode == "" {
		mode = defaultSSLMode(cfg.Host)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, mode), nil
}

func defaultSSLMode(host string) string {
	if host == "localhost" || host == "127.0.0.1" || host == "" {
		return "disable"
	}
	return "require"
}
