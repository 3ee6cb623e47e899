package usecases

import (
	"context"
	"errors"
	"math"
	"time"

	"safr-server/db"
	"safr-server/entities"
	"safr-server/logging"
	"safr-server/metrics"
	"safr-server/repositories"

	"gorm.io/gorm"
)

const (
	MinPersonalScore = 0
	MaxPersonalScore = 100
)

const (
	EventRankingUpserted = "ranking_upserted"
	EventRankingDeleted  = "ranking_deleted"
)

// RankingEvent describes a change to one of a user's rankings.
type RankingEvent struct {
	Type      string            `json:"type"`
	CityID    uint              `json:"city_id"`
	Ranking   *entities.Ranking `json:"ranking,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Notifier receives ranking events after they are committed.
type Notifier interface {
	NotifyUser(userID uint, event RankingEvent)
}

// ListOptions pages through a user's rankings.
type ListOptions struct {
	Skip     int
	Limit    int
	SortDesc bool
}

// DefaultListOptions mirrors the API defaults: first page, highest score first.
func DefaultListOptions() ListOptions {
	return ListOptions{Skip: 0, Limit: DefaultLimit, SortDesc: true}
}

// RankingUseCase manages users' personal city scores.
type RankingUseCase struct {
	db       db.Database
	rankings repositories.RankingRepository
	cities   *CityUseCase
	notifier Notifier
}

func NewRankingUseCase(database db.Database, rankings repositories.RankingRepository, cities *CityUseCase) *RankingUseCase {
	return &RankingUseCase{db: database, rankings: rankings, cities: cities}
}

// SetNotifier registers the receiver of ranking events.
func (uc *RankingUseCase) SetNotifier(n Notifier) {
	uc.notifier = n
}

// Upsert creates the user's ranking for the city or overwrites its score.
func (uc *RankingUseCase) Upsert(ctx context.Context, userID, cityID uint, score float64) (*entities.Ranking, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < MinPersonalScore || score > MaxPersonalScore {
		return nil, newError(ErrValidation, "personal_score must be between %d and %d", MinPersonalScore, MaxPersonalScore)
	}

	exists, err := uc.cities.Exists(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, newError(ErrNotFound, "city with id %d not found", cityID)
	}

	var ranking *entities.Ranking
	err = uc.db.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		ranking, err = uc.rankings.WithTx(tx).Upsert(ctx, userID, cityID, score)
		return err
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, newError(ErrNotFound, "city with id %d not found", cityID)
	}
	if err != nil {
		return nil, err
	}

	metrics.RankingMutations.WithLabelValues("upsert").Inc()
	logging.Debug().Uint("user_id", userID).Uint("city_id", cityID).Float64("score", score).Msg("ranking upserted")
	uc.notify(userID, RankingEvent{Type: EventRankingUpserted, CityID: cityID, Ranking: ranking})
	return ranking, nil
}

// Get returns the user's ranking for one city.
func (uc *RankingUseCase) Get(ctx context.Context, userID, cityID uint) (*entities.Ranking, error) {
	ranking, err := uc.rankings.Get(ctx, userID, cityID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrNotFound, "no ranking found for city id %d for the current user", cityID)
	}
	return ranking, err
}

// Delete removes the user's ranking for the city.
func (uc *RankingUseCase) Delete(ctx context.Context, userID, cityID uint) error {
	err := uc.db.Transaction(ctx, func(tx *gorm.DB) error {
		return uc.rankings.WithTx(tx).Delete(ctx, userID, cityID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "no ranking found for city id %d for the current user", cityID)
	}
	if err != nil {
		return err
	}

	metrics.RankingMutations.WithLabelValues("delete").Inc()
	uc.notify(userID, RankingEvent{Type: EventRankingDeleted, CityID: cityID})
	return nil
}

// List returns one page of the user's rankings and the user's total ranking count.
func (uc *RankingUseCase) List(ctx context.Context, userID uint, opts ListOptions) ([]entities.Ranking, int64, error) {
	if err := validatePage(opts.Skip, opts.Limit); err != nil {
		return nil, 0, err
	}

	var (
		rankings []entities.Ranking
		total    int64
	)
	err := uc.db.Transaction(ctx, func(tx *gorm.DB) error {
		repo := uc.rankings.WithTx(tx)
		var err error
		rankings, err = repo.ListByUser(ctx, userID, repositories.RankingPage{
			Offset:   opts.Skip,
			Limit:    opts.Limit,
			SortDesc: opts.SortDesc,
		})
		if err != nil {
			return err
		}
		total, err = repo.CountByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return rankings, total, nil
}

func (uc *RankingUseCase) notify(userID uint, event RankingEvent) {
	if uc.notifier == nil {
		return
	}
	event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	uc.notifier.NotifyUser(userID, event)
}
