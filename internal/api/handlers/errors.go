package handlers

import (
	"errors"

	"greenbite/domain"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps domain failures to HTTP statuses. Anything unrecognised is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidExpiryDate),
		errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUserNotAllowed):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrFoodItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNoExpiryFound):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDetectionService),
		errors.Is(err, domain.ErrExtractionService):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrDevice):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCapture):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
