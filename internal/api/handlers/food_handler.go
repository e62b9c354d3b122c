package handlers

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"greenbite/domain"
	"greenbite/internal/api/presenters"
	"greenbite/pkg/food"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	maxFrameSize      = 10 << 20
	keepAliveInterval = 20 * time.Second
)

type (
	FoodHandler interface {
		AddFoodItem(c *fiber.Ctx) error
		UpdateFoodItem(c *fiber.Ctx) error
		DeleteFoodItem(c *fiber.Ctx) error
		ToggleAlert(c *fiber.Ctx) error
		GetFoodItems(c *fiber.Ctx) error
		StreamFoodItems(c *fiber.Ctx) error
		GetDashboardStats(c *fiber.Ctx) error
		DetectFoodItem(c *fiber.Ctx) error
	}

	foodHandler struct {
		foodService food.FoodService
		validator   *validator.Validate
	}
)

func NewFoodHandler(foodService food.FoodService, validator *validator.Validate) FoodHandler {
	return &foodHandler{
		foodService: foodService,
		validator:   validator,
	}
}

func (h *foodHandler) AddFoodItem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.AddFoodItemRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddFoodItem, err)
	}

	res, err := h.foodService.AddFoodItem(c.Context(), userID, *req)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedAddFoodItem, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddFoodItem)
}

func (h *foodHandler) UpdateFoodItem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	itemID := c.Params("id")
	req := new(domain.FoodItemPatch)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateFoodItem, err)
	}

	if err := h.foodService.UpdateFoodItem(c.Context(), userID, itemID, *req); err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedUpdateFoodItem, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessUpdateFoodItem)
}

func (h *foodHandler) DeleteFoodItem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	itemID := c.Params("id")

	if err := h.foodService.DeleteFoodItem(c.Context(), userID, itemID); err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedDeleteFoodItem, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDeleteFoodItem)
}

func (h *foodHandler) ToggleAlert(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	itemID := c.Params("id")
	req := new(domain.ToggleAlertRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedToggleAlert, err)
	}

	if err := h.foodService.ToggleAlert(c.Context(), userID, itemID, *req.Enabled); err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedToggleAlert, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessToggleAlert)
}

func (h *foodHandler) GetFoodItems(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	items, err := h.foodService.GetFoodItems(c.Context(), userID, time.Now())
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetFoodItems, err)
	}

	return presenters.SuccessResponse(c, items, fiber.StatusOK, domain.MessageSuccessGetFoodItems)
}

// StreamFoodItems serves the live view as server-sent events. Every event
// carries the full collection; the first one is sent right away.
func (h *foodHandler) StreamFoodItems(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// one slot, latest wins: a slow client skips intermediate snapshots
	updates := make(chan []domain.FoodItemResponse, 1)
	sub, err := h.foodService.Watch(c.Context(), userID, func(items []domain.FoodItemResponse) {
		select {
		case <-updates:
		default:
		}
		updates <- items
	})
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetFoodItems, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	encode := c.App().Config().JSONEncoder
	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Unsubscribe()
		if err := writeSnapshots(w, updates, done, encode, keepAliveInterval); err != nil {
			log.Debugf("live view for user %s closed: %v", userID, err)
		}
	})
	return nil
}

// writeSnapshots copies snapshots to w until done closes or a write fails.
func writeSnapshots(
	w *bufio.Writer,
	updates <-chan []domain.FoodItemResponse,
	done <-chan struct{},
	encode func(v interface{}) ([]byte, error),
	keepAlive time.Duration,
) error {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case items := <-updates:
			data, err := encode(items)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

func (h *foodHandler) GetDashboardStats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	stats, err := h.foodService.GetDashboardStats(c.Context(), userID, time.Now())
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedGetDashboardStats, err)
	}

	return presenters.SuccessResponse(c, stats, fiber.StatusOK, domain.MessageSuccessGetDashboardStats)
}

// DetectFoodItem runs the detection pipeline on a frame captured by the
// client and uploaded as the image field.
func (h *foodHandler) DetectFoodItem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	frame, err := readFormFile(c, "image")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	res, err := h.foodService.DetectUploadedFrame(c.Context(), userID, frame)
	if err != nil {
		return presenters.ErrorResponse(c, statusFor(err), domain.MessageFailedDetectFoodItem, err)
	}

	if !res.Detected {
		return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageNothingDetected)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessDetectFoodItem)
}

func readFormFile(c *fiber.Ctx, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	if header.Size > maxFrameSize {
		return nil, fmt.Errorf("%s is larger than %d bytes", field, maxFrameSize)
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
