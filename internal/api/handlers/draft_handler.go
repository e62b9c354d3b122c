package handlers

import (
	"errors"

	"greenbite/domain"
	"greenbite/internal/api/presenters"
	"greenbite/pkg/food"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	DraftHandler interface {
		GetDraft(c *fiber.Ctx) error
		UpdateDraft(c *fiber.Ctx) error
		DiscardDraft(c *fiber.Ctx) error
		EditFoodItem(c *fiber.Ctx) error
		ExtractExpiry(c *fiber.Ctx) error
		SubmitDraft(c *fiber.Ctx) error
	}

	draftHandler struct {
		foodService food.FoodService
		validator   *validator.Validate
	}
)

func NewDraftHandler(foodService food.FoodService, validator *validator.Validate) DraftHandler {
	return &draftHandler{
		foodService: foodService,
		validator:   validator,
	}
}

func (h *draftHandler) GetDraft(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	return presenters.SuccessResponse(c, h.foodService.GetDraft(userID), fiber.StatusOK, domain.MessageSuccessGetDraft)
}

func (h *draftHandler) UpdateDraft(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.UpdateDraftRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	draft := h.foodService.UpdateDraft(userID, *req)
	return presenters.SuccessResponse(c, draft, fiber.StatusOK, domain.MessageSuccessUpdateDraft)
}

func (h *draftHandler) DiscardDraft(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	h.foodService.DiscardDraft(userID)
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDiscardDraft)
}

func (h *draftHandler) EditFoodItem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	itemID := c.Params("id")

	draft, err := h.foodService.EditFoodItem(c.Context(), userID, itemID)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedEditFoodItem, err)
	}

	return presenters.SuccessResponse(c, draft, fiber.StatusOK, domain.MessageSuccessEditFoodItem)
}

func (h *draftHandler) ExtractExpiry(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	header, err := c.FormFile("file")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	file, err := header.Open()
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	defer file.Close()

	draft, err := h.foodService.ExtractDraftExpiry(c.Context(), userID, header.Filename, file)
	if errors.Is(err, domain.ErrNoExpiryFound) {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageNoExpiryFound, err)
	}
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedExtractExpiry, err)
	}

	return presenters.SuccessResponse(c, draft, fiber.StatusOK, domain.MessageSuccessExtractExpiry)
}

func (h *draftHandler) SubmitDraft(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.foodService.SubmitDraft(c.Context(), userID)
	if errors.Is(err, domain.ErrValidation) {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubmitDraft, err)
	}
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedSaveSubmitDraft, err)
	}

	status := fiber.StatusCreated
	if res.Updated {
		status = fiber.StatusOK
	}
	return presenters.SuccessResponse(c, res, status, domain.MessageSuccessSubmitDraft)
}
