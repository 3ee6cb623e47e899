package repositories

import (
	"context"
	"time"

	"safr-server/db"
	"safr-server/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rankingPgRepository struct {
	conn *gorm.DB
}

func NewRankingPgRepository(database db.Database) RankingRepository {
	return &rankingPgRepository{conn: database.GetDB()}
}

func (r *rankingPgRepository) WithTx(tx *gorm.DB) RankingRepository {
	return &rankingPgRepository{conn: tx}
}

// Upsert inserts the ranking or overwrites the score of the existing
// (user, city) row in a single statement.
func (r *rankingPgRepository) Upsert(ctx context.Context, userID, cityID uint, score float64) (*entities.Ranking, error) {
	now := time.Now().UTC()
	row := entities.Ranking{
		UserID:        userID,
		CityID:        cityID,
		PersonalScore: score,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := r.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "city_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"personal_score", "updated_at"}),
	}).Omit("City").Create(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.Get(ctx, userID, cityID)
}

func (r *rankingPgRepository) Get(ctx context.Context, userID, cityID uint) (*entities.Ranking, error) {
	var ranking entities.Ranking
	err := r.conn.WithContext(ctx).
		Preload("City").
		Preload("City.Attributes", orderAttributes).
		Where("user_id = ? AND city_id = ?", userID, cityID).
		First(&ranking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &ranking, nil
}

// Delete removes the ranking; ErrNotFound when there was nothing to remove.
func (r *rankingPgRepository) Delete(ctx context.Context, userID, cityID uint) error {
	res := r.conn.WithContext(ctx).
		Where("user_id = ? AND city_id = ?", userID, cityID).
		Delete(&entities.Ranking{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *rankingPgRepository) ListByUser(ctx context.Context, userID uint, page RankingPage) ([]entities.Ranking, error) {
	rankings := make([]entities.Ranking, 0)
	err := r.conn.WithContext(ctx).
		Preload("City").
		Preload("City.Attributes", orderAttributes).
		Where("user_id = ?", userID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "personal_score"}, Desc: page.SortDesc},
			{Column: clause.Column{Name: "city_id"}},
		}}).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&rankings).Error
	return rankings, err
}

func (r *rankingPgRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.conn.WithContext(ctx).Model(&entities.Ranking{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
