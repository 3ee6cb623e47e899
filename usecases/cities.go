package usecases

import (
	"context"
	"errors"

	"safr-server/cache"
	"safr-server/entities"
	"safr-server/metrics"
	"safr-server/repositories"
)

// CityUseCase serves the read-only city catalogue.
type CityUseCase struct {
	cities repositories.CityRepository
	cache  *cache.CityCache
}

// NewCityUseCase builds the use case; cityCache may be nil.
func NewCityUseCase(cities repositories.CityRepository, cityCache *cache.CityCache) *CityUseCase {
	return &CityUseCase{cities: cities, cache: cityCache}
}

// List returns cities ordered by id.
func (uc *CityUseCase) List(ctx context.Context, skip, limit int) ([]entities.City, error) {
	if err := validatePage(skip, limit); err != nil {
		return nil, err
	}
	cities, err := uc.cities.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		for _, c := range cities {
			uc.cache.Set(c)
		}
	}
	return cities, nil
}

// Get returns one city or ErrNotFound.
func (uc *CityUseCase) Get(ctx context.Context, id uint) (*entities.City, error) {
	if uc.cache != nil {
		if city, ok := uc.cache.Get(id); ok {
			metrics.CityCacheRequests.WithLabelValues("hit").Inc()
			return &city, nil
		}
		metrics.CityCacheRequests.WithLabelValues("miss").Inc()
	}

	city, err := uc.cities.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(ErrNotFound, "city with id %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		uc.cache.Set(*city)
	}
	return city, nil
}

// Exists reports whether the city is known.
func (uc *CityUseCase) Exists(ctx context.Context, id uint) (bool, error) {
	_, err := uc.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
