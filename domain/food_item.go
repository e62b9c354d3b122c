package domain

import (
	"errors"
)

var (
	MessageSuccessAddFoodItem       = "food item added successfully"
	MessageSuccessUpdateFoodItem    = "food item updated successfully"
	MessageSuccessDeleteFoodItem    = "food item deleted successfully"
	MessageSuccessGetFoodItems      = "food items retrieved successfully"
	MessageSuccessToggleAlert       = "food item alert updated successfully"
	MessageSuccessDetectFoodItem    = "detected and added food item"
	MessageNothingDetected          = "no items detected in image"
	MessageSuccessGetDashboardStats = "dashboard statistics retrieved successfully"

	MessageFailedAddFoodItem       = "failed to add food item"
	MessageFailedUpdateFoodItem    = "failed to update food item"
	MessageFailedDeleteFoodItem    = "failed to delete food item"
	MessageFailedGetFoodItems      = "failed to retrieve food items"
	MessageFailedToggleAlert       = "failed to update food item alert"
	MessageFailedDetectFoodItem    = "error during detection"
	MessageFailedGetDashboardStats = "failed to retrieve dashboard statistics"

	// Camera and pipeline failures.
	ErrDevice           = errors.New("camera device unavailable")
	ErrCapture          = errors.New("no active camera stream")
	ErrDetectionService = errors.New("detection service unavailable")

	// Inventory failures.
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("inventory write rejected")
	ErrFoodItemNotFound  = errors.New("food item not found")
	ErrInvalidExpiryDate = errors.New("invalid expiry date")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
)

type (
	// FoodItemFields are the caller supplied fields of a new inventory record.
	FoodItemFields struct {
		Name         string
		Quantity     int
		ExpiryDate   *string
		AddedDate    string
		AlertEnabled bool
		Source       string
		ImageURL     string
	}

	// FoodItemPatch is a partial update; nil fields keep their stored value.
	FoodItemPatch struct {
		Name         *string `json:"name"`
		Quantity     *int    `json:"quantity" validate:"omitempty,min=1"`
		ExpiryDate   *string `json:"expiry_date"`
		AlertEnabled *bool   `json:"alert_enabled"`
		ImageURL     *string `json:"-"`
	}

	AddFoodItemRequest struct {
		Name       string `json:"name" validate:"required"`
		Quantity   int    `json:"quantity" validate:"required,min=1"`
		ExpiryDate string `json:"expiry_date" validate:"required"`
	}

	ToggleAlertRequest struct {
		Enabled *bool `json:"enabled" validate:"required"`
	}

	Freshness struct {
		Label    string `json:"label"`
		Severity string `json:"severity"`
	}

	FoodItemResponse struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Quantity     int       `json:"quantity"`
		ExpiryDate   *string   `json:"expiry_date"`
		AddedDate    string    `json:"added_date"`
		AlertEnabled bool      `json:"alert_enabled"`
		Source       string    `json:"source"`
		ImageURL     string    `json:"image_url,omitempty"`
		Freshness    Freshness `json:"freshness"`
	}

	DetectionResponse struct {
		Detected   bool              `json:"detected"`
		Label      string            `json:"label,omitempty"`
		Confidence float64           `json:"confidence,omitempty"`
		Item       *FoodItemResponse `json:"item,omitempty"`
	}

	DashboardStatsResponse struct {
		TotalItems        int `json:"total_items"`
		FreshItems        int `json:"fresh_items"`
		ExpiringSoonItems int `json:"expiring_soon_items"`
		ExpiredItems      int `json:"expired_items"`
		UnknownItems      int `json:"unknown_items"`
		AlertEnabledItems int `json:"alert_enabled_items"`
	}
)
