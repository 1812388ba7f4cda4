package controller

import (
	"errors"

	"conflict-resolution-be/internal/service"
	"conflict-resolution-be/pkg/textstream"

	"github.com/gofiber/fiber/v2"
)

// DomainStatus maps service and stream errors to HTTP status codes.
func DomainStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, textstream.ErrNotFound), errors.Is(err, service.ErrConflictNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, service.ErrStreamNotPending), errors.Is(err, service.ErrStreamBusy), errors.Is(err, service.ErrNoProducer),
		errors.Is(err, textstream.ErrTerminalState), errors.Is(err, textstream.ErrLeaseHeld):
		return fiber.StatusConflict, true
	case errors.Is(err, service.ErrUnauthorized):
		return fiber.StatusForbidden, true
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest, true
	default:
		return 0, false
	}
}
