package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Database is the persistence handle injected into repositories and use cases.
type Database interface {
	GetDB() *gorm.DB
	// Transaction runs fn in a transaction bound to ctx. It commits when fn
	// returns nil and rolls back on error or panic.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Ping(ctx context.Context) error
	Close() error
}

type GormDatabase struct {
	DB *gorm.DB
}

func (g *GormDatabase) GetDB() *gorm.DB { return g.DB }

func (g *GormDatabase) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.DB.WithContext(ctx).Transaction(fn)
}

func (g *GormDatabase) Ping(ctx context.Context) error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormDatabase) Close() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
