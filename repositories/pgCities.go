package repositories

import (
	"context"

	"safr-server/db"
	"safr-server/entities"

	"gorm.io/gorm"
)

type cityPgRepository struct {
	conn *gorm.DB
}

func NewCityPgRepository(database db.Database) CityRepository {
	return &cityPgRepository{conn: database.GetDB()}
}

func (r *cityPgRepository) WithTx(tx *gorm.DB) CityRepository {
	return &cityPgRepository{conn: tx}
}

func (r *cityPgRepository) GetByID(ctx context.Context, id uint) (*entities.City, error) {
	var city entities.City
	err := r.conn.WithContext(ctx).Preload("Attributes", orderAttributes).Where("id = ?", id).First(&city).Error
	if err != nil {
		return nil, translate(err)
	}
	return &city, nil
}

func (r *cityPgRepository) List(ctx context.Context, offset, limit int) ([]entities.City, error) {
	cities := make([]entities.City, 0)
	err := r.conn.WithContext(ctx).
		Preload("Attributes", orderAttributes).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&cities).Error
	return cities, err
}

func (r *cityPgRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.conn.WithContext(ctx).Model(&entities.City{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func orderAttributes(tx *gorm.DB) *gorm.DB {
	return tx.Order("attribute_name ASC")
}
