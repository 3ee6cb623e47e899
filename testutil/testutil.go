// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"safr-server/auth"
	"safr-server/confs"
	"safr-server/db"
	"safr-server/entities"
	"safr-server/logging"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

const TestSecret = "test-secret"

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) db.Database {
	t.Helper()
	logging.Init(logging.Config{Level: "disabled"})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	database, err := db.Open(sqlite.Open(dsn), confs.DatabaseConfig{
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// Config returns a valid configuration with a cheap bcrypt cost.
func Config() *confs.Config {
	cfg := confs.Defaults()
	cfg.Auth.SecretKey = TestSecret
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Server.Address = "127.0.0.1:0"
	return &cfg
}

// NewIssuer returns a token issuer signing with TestSecret.
func NewIssuer(t testing.TB) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer(TestSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

// SeedCity inserts a city with the given id and a couple of attribute scores.
func SeedCity(t testing.TB, database db.Database, id uint, name, country string) *entities.City {
	t.Helper()
	city := &entities.City{
		ID:      id,
		Name:    name,
		Country: country,
		Attributes: []entities.CityAttribute{
			{AttributeName: entities.AttributeSafety, NormalizedScore: 0.8},
			{AttributeName: entities.AttributeClimate, NormalizedScore: 0.6},
		},
	}
	if err := database.GetDB().Create(city).Error; err != nil {
		t.Fatalf("seed city %d: %v", id, err)
	}
	return city
}

// SeedUser inserts a user with a bcrypt hash of password.
func SeedUser(t testing.TB, database db.Database, username, password string) *entities.User {
	t.Helper()
	hashed, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &entities.User{Username: username, HashedPassword: hashed}
	if err := database.GetDB().Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}
