package middlewares

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"yellowpages-backend/store"
	"yellowpages-backend/validation"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 2) DTO shape errors (400 + per-field tag)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 3) Vendor field rules
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": verr.Error(),
			"field":   verr.Field,
			"reason":  verr.Reason,
		})
	}

	// 4) Uniqueness
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": conflict.Error(),
			"kind":    conflict.Kind,
		})
	}

	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Vendor not found"})
	}

	if errors.Is(err, store.ErrStorageUnavailable) {
		log.Warn().Err(err).Str("path", c.Path()).Msg("storage unavailable")
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "storage temporarily unavailable, retry later",
		})
	}

	// 5) Unknown errors (500)
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("internal error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
