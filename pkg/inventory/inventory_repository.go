package inventory

import (
	"context"
	"errors"

	"greenbite/domain"
	"greenbite/entities"

	"gorm.io/gorm"
)

type (
	InventoryRepository interface {
		AddFoodItem(ctx context.Context, foodItem *entities.FoodItem) error
		GetFoodItemByID(ctx context.Context, userID, id string) (*entities.FoodItem, error)
		UpdateFoodItem(ctx context.Context, userID, id string, columns map[string]interface{}) (int64, error)
		DeleteFoodItem(ctx context.Context, userID, id string) (int64, error)
		GetFoodItems(ctx context.Context, userID string) ([]entities.FoodItem, error)
		GetAlertEnabledFoodItems(ctx context.Context) ([]entities.FoodItem, error)
	}

	inventoryRepository struct {
		db *gorm.DB
	}
)

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) AddFoodItem(ctx context.Context, foodItem *entities.FoodItem) error {
	return r.db.WithContext(ctx).Create(foodItem).Error
}

func (r *inventoryRepository) GetFoodItemByID(ctx context.Context, userID, id string) (*entities.FoodItem, error) {
	var foodItem entities.FoodItem
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&foodItem).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrFoodItemNotFound
		}
		return nil, err
	}
	return &foodItem, nil
}

func (r *inventoryRepository) UpdateFoodItem(ctx context.Context, userID, id string, columns map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entities.FoodItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(columns)
	return res.RowsAffected, res.Error
}

func (r *inventoryRepository) DeleteFoodItem(ctx context.Context, userID, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.FoodItem{})
	return res.RowsAffected, res.Error
}

func (r *inventoryRepository) GetFoodItems(ctx context.Context, userID string) ([]entities.FoodItem, error) {
	var foodItems []entities.FoodItem

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_date asc, created_at asc").
		Find(&foodItems).Error; err != nil {
		return nil, err
	}

	return foodItems, nil
}

func (r *inventoryRepository) GetAlertEnabledFoodItems(ctx context.Context) ([]entities.FoodItem, error) {
	var foodItems []entities.FoodItem

	if err := r.db.WithContext(ctx).
		Where("alert_enabled = ?", true).
		Order("user_id asc, expiry_date asc").
		Find(&foodItems).Error; err != nil {
		return nil, err
	}

	return foodItems, nil
}
