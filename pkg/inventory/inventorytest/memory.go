// Package inventorytest provides an in-memory InventoryRepository for tests.
package inventorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"greenbite/domain"
	"greenbite/entities"
)

type MemoryRepository struct {
	mu    sync.Mutex
	items map[string]entities.FoodItem
	order map[string]int
	seq   int

	// Err, when set, is returned by every write.
	Err error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]entities.FoodItem),
		order: make(map[string]int),
	}
}

func (r *MemoryRepository) AddFoodItem(_ context.Context, foodItem *entities.FoodItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	now := time.Now()
	foodItem.CreatedAt = now
	foodItem.UpdatedAt = now
	r.items[foodItem.ID] = *foodItem
	r.seq++
	r.order[foodItem.ID] = r.seq
	return nil
}

func (r *MemoryRepository) GetFoodItemByID(_ context.Context, userID, id string) (*entities.FoodItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return nil, domain.ErrFoodItemNotFound
	}
	return &item, nil
}

func (r *MemoryRepository) UpdateFoodItem(_ context.Context, userID, id string, columns map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return 0, r.Err
	}
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return 0, nil
	}

	for column, value := range columns {
		switch column {
		case "name":
			item.Name = value.(string)
		case "quantity":
			item.Quantity = value.(int)
		case "expiry_date":
			v := value.(string)
			item.ExpiryDate = &v
		case "alert_enabled":
			item.AlertEnabled = value.(bool)
		case "image_url":
			item.ImageURL = value.(string)
		}
	}
	item.UpdatedAt = time.Now()
	r.items[id] = item
	return 1, nil
}

func (r *MemoryRepository) DeleteFoodItem(_ context.Context, userID, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return 0, r.Err
	}
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return 0, nil
	}
	delete(r.items, id)
	delete(r.order, id)
	return 1, nil
}

func (r *MemoryRepository) GetFoodItems(_ context.Context, userID string) ([]entities.FoodItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]entities.FoodItem, 0)
	for _, item := range r.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	r.sortLocked(items)
	return items, nil
}

func (r *MemoryRepository) GetAlertEnabledFoodItems(_ context.Context) ([]entities.FoodItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]entities.FoodItem, 0)
	for _, item := range r.items {
		if item.AlertEnabled {
			items = append(items, item)
		}
	}
	r.sortLocked(items)
	return items, nil
}

func (r *MemoryRepository) sortLocked(items []entities.FoodItem) {
	sort.Slice(items, func(i, j int) bool {
		return r.order[items[i].ID] < r.order[items[j].ID]
	})
}
