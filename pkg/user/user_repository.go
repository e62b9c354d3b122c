package user

import (
	"context"
	"errors"

	"greenbite/domain"
	"greenbite/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	UserRepository interface {
		UpsertUser(ctx context.Context, user *entities.User) error
		GetUserByID(ctx context.Context, id string) (*entities.User, error)
		GetUsersByIDs(ctx context.Context, ids []string) ([]entities.User, error)
	}

	userRepository struct {
		db *gorm.DB
	}
)

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// UpsertUser inserts the profile or refreshes email and name of an existing
// one. Empty claims never overwrite stored values.
func (r *userRepository) UpsertUser(ctx context.Context, user *entities.User) error {
	columns := make([]string, 0, 3)
	if user.Email != "" {
		columns = append(columns, "email")
	}
	if user.Name != "" {
		columns = append(columns, "name")
	}
	columns = append(columns, "updated_at")

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(user).Error
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]entities.User, error) {
	var users []entities.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
