package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusMapper maps an error the application layer knows about to an HTTP
// status. ok is false for errors it does not recognize.
type StatusMapper func(err error) (code int, ok bool)

// StatusFor resolves the HTTP status for err. Fiber and validation errors are
// handled here; everything else goes through domain, falling back to 500.
func StatusFor(err error, domain StatusMapper) int {
	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	}
	if domain != nil {
		if code, ok := domain(err); ok {
			return code
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware renders handler errors with the standard envelope.
// Internal errors are not echoed to the client.
func ErrorHandlerMiddleware(domain StatusMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err, domain)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
