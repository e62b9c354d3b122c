package domain

import (
	"errors"
)

var (
	MessageSuccessGetDraft       = "draft retrieved successfully"
	MessageSuccessUpdateDraft    = "draft updated successfully"
	MessageSuccessDiscardDraft   = "draft discarded"
	MessageSuccessEditFoodItem   = "draft filled from food item"
	MessageSuccessExtractExpiry  = "expiry date extracted successfully"
	MessageNoExpiryFound         = "no expiry date found in the image"
	MessageSuccessSubmitDraft    = "food item saved successfully"
	MessageFailedUpdateDraft     = "failed to update draft"
	MessageFailedEditFoodItem    = "failed to edit food item"
	MessageFailedExtractExpiry   = "failed to process image"
	MessageFailedSubmitDraft     = "please fill in all fields"
	MessageFailedSaveSubmitDraft = "failed to save food item"

	ErrExtractionService = errors.New("expiry extraction service unavailable")
	ErrNoExpiryFound     = errors.New("no expiry date found")
)

type (
	// Draft is the unsaved form state of a food item. Quantity stays free text
	// until the draft is submitted. EditingID is set when the draft was filled
	// from an existing item.
	Draft struct {
		EditingID  *string `json:"editing_id"`
		Name       string  `json:"name"`
		Quantity   string  `json:"quantity"`
		ExpiryDate *string `json:"expiry_date"`
	}

	UpdateDraftRequest struct {
		Name       *string `json:"name"`
		Quantity   *string `json:"quantity"`
		ExpiryDate *string `json:"expiry_date"`
	}

	DraftSubmission struct {
		Name       string `validate:"required"`
		Quantity   string `validate:"required,number"`
		ExpiryDate string `validate:"required"`
	}

	SubmitDraftResponse struct {
		ID      string `json:"id"`
		Updated bool   `json:"updated"`
	}
)
