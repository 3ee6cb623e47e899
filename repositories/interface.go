package repositories

import (
	"context"
	"errors"

	"safr-server/entities"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type CityRepository interface {
	WithTx(tx *gorm.DB) CityRepository
	GetByID(ctx context.Context, id uint) (*entities.City, error)
	List(ctx context.Context, offset, limit int) ([]entities.City, error)
	Exists(ctx context.Context, id uint) (bool, error)
}

// RankingPage selects a window of a user's rankings ordered by personal score.
type RankingPage struct {
	Offset   int
	Limit    int
	SortDesc bool
}

type RankingRepository interface {
	WithTx(tx *gorm.DB) RankingRepository
	Upsert(ctx context.Context, userID, cityID uint, score float64) (*entities.Ranking, error)
	Get(ctx context.Context, userID, cityID uint) (*entities.Ranking, error)
	Delete(ctx context.Context, userID, cityID uint) error
	ListByUser(ctx context.Context, userID uint, page RankingPage) ([]entities.Ranking, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
