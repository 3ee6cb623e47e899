package repositories

import (
	"context"

	"safr-server/db"
	"safr-server/entities"

	"gorm.io/gorm"
)

type userPgRepository struct {
	conn *gorm.DB
}

func NewUserPgRepository(database db.Database) UserRepository {
	return &userPgRepository{conn: database.GetDB()}
}

func (r *userPgRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userPgRepository{conn: tx}
}

func (r *userPgRepository) Create(ctx context.Context, user *entities.User) error {
	return translate(r.conn.WithContext(ctx).Create(user).Error)
}

func (r *userPgRepository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.conn.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userPgRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.conn.WithContext(ctx).
		Where("username_normalized = ?", entities.NormalizeUsername(username)).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userPgRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.conn.WithContext(ctx).Model(&entities.User{}).
		Where("username_normalized = ?", entities.NormalizeUsername(username)).
		Count(&n).Error
	return n > 0, err
}

func (r *userPgRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.conn.WithContext(ctx).Model(&entities.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}
