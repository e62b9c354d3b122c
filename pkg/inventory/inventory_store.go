// Package inventory is the authoritative per-user food item collection: a
// record store plus a live view that pushes full snapshots to subscribers
// after every change.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenbite/domain"
	"greenbite/entities"
	"greenbite/pkg/freshness"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Broadcaster announces that the collection of a user changed.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID string) error
}

type (
	InventoryStore interface {
		Subscribe(ctx context.Context, userID string, onChange func([]entities.FoodItem)) (*Subscription, error)
		Create(ctx context.Context, userID string, fields domain.FoodItemFields) (string, error)
		Update(ctx context.Context, userID, itemID string, patch domain.FoodItemPatch) error
		Delete(ctx context.Context, userID, itemID string) error
		ToggleAlert(ctx context.Context, userID, itemID string, enabled bool) error
		Get(ctx context.Context, userID, itemID string) (*entities.FoodItem, error)
		List(ctx context.Context, userID string) ([]entities.FoodItem, error)
		ListAlertEnabled(ctx context.Context) ([]entities.FoodItem, error)
	}

	inventoryStore struct {
		repo        InventoryRepository
		hub         *Hub
		broadcaster Broadcaster
		now         func() time.Time
	}
)

// NewInventoryStore wires the repository to the live view hub. Changes are
// announced through broadcaster; pass the hub itself for a single instance,
// or a PgBroadcaster when several instances share the database.
func NewInventoryStore(repo InventoryRepository, hub *Hub, broadcaster Broadcaster) InventoryStore {
	if broadcaster == nil {
		broadcaster = hub
	}
	return &inventoryStore{
		repo:        repo,
		hub:         hub,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func (s *inventoryStore) Subscribe(ctx context.Context, userID string, onChange func([]entities.FoodItem)) (*Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrUserNotAllowed)
	}
	sub, err := s.hub.Subscribe(ctx, userID, onChange)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return sub, nil
}

func (s *inventoryStore) Create(ctx context.Context, userID string, fields domain.FoodItemFields) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrUserNotAllowed)
	}

	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrPersistence)
	}
	if fields.Quantity <= 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrInvalidQuantity)
	}

	var expiry *string
	if fields.ExpiryDate != nil {
		normalized, err := freshness.NormalizeDate(*fields.ExpiryDate)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrInvalidExpiryDate)
		}
		expiry = &normalized
	}

	addedDate := freshness.FormatDate(s.now())
	if fields.AddedDate != "" {
		normalized, err := freshness.NormalizeDate(fields.AddedDate)
		if err != nil {
			return "", fmt.Errorf("%w: invalid added date", domain.ErrPersistence)
		}
		addedDate = normalized
	}

	source := fields.Source
	if source == "" {
		source = entities.SourceManual
	}

	foodItem := &entities.FoodItem{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Quantity:     fields.Quantity,
		ExpiryDate:   expiry,
		AddedDate:    addedDate,
		AlertEnabled: fields.AlertEnabled,
		Source:       source,
		ImageURL:     fields.ImageURL,
	}

	if err := s.repo.AddFoodItem(ctx, foodItem); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.announce(ctx, userID)
	return foodItem.ID, nil
}

func (s *inventoryStore) Update(ctx context.Context, userID, itemID string, patch domain.FoodItemPatch) error {
	if userID == "" {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrUserNotAllowed)
	}

	columns, err := patchColumns(patch)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	if len(columns) == 0 {
		if _, err := s.Get(ctx, userID, itemID); err != nil {
			return err
		}
		return nil
	}

	rows, err := s.repo.UpdateFoodItem(ctx, userID, itemID, columns)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrFoodItemNotFound)
	}

	s.announce(ctx, userID)
	return nil
}

// Delete removes the item. Deleting an absent item succeeds.
func (s *inventoryStore) Delete(ctx context.Context, userID, itemID string) error {
	if userID == "" {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrUserNotAllowed)
	}

	rows, err := s.repo.DeleteFoodItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if rows > 0 {
		s.announce(ctx, userID)
	}
	return nil
}

func (s *inventoryStore) ToggleAlert(ctx context.Context, userID, itemID string, enabled bool) error {
	return s.Update(ctx, userID, itemID, domain.FoodItemPatch{AlertEnabled: &enabled})
}

func (s *inventoryStore) Get(ctx context.Context, userID, itemID string) (*entities.FoodItem, error) {
	item, err := s.repo.GetFoodItemByID(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrFoodItemNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, domain.ErrFoodItemNotFound)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return item, nil
}

func (s *inventoryStore) List(ctx context.Context, userID string) ([]entities.FoodItem, error) {
	items, err := s.repo.GetFoodItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return items, nil
}

func (s *inventoryStore) ListAlertEnabled(ctx context.Context) ([]entities.FoodItem, error) {
	items, err := s.repo.GetAlertEnabledFoodItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return items, nil
}

// announce runs after a committed write; a lost announcement only delays the
// live view, so it is logged rather than returned.
func (s *inventoryStore) announce(ctx context.Context, userID string) {
	if err := s.broadcaster.Broadcast(ctx, userID); err != nil {
		log.Warnf("inventory: broadcast for user %s failed: %v", userID, err)
	}
}

func patchColumns(patch domain.FoodItemPatch) (map[string]interface{}, error) {
	columns := make(map[string]interface{})

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("name is required")
		}
		columns["name"] = name
	}
	if patch.Quantity != nil {
		if *patch.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		columns["quantity"] = *patch.Quantity
	}
	if patch.ExpiryDate != nil {
		normalized, err := freshness.NormalizeDate(*patch.ExpiryDate)
		if err != nil {
			return nil, domain.ErrInvalidExpiryDate
		}
		columns["expiry_date"] = normalized
	}
	if patch.AlertEnabled != nil {
		columns["alert_enabled"] = *patch.AlertEnabled
	}
	if patch.ImageURL != nil {
		columns["image_url"] = *patch.ImageURL
	}

	return columns, nil
}
