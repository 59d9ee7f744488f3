package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"yellowpages-backend/models"
	"yellowpages-backend/store"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLen   = 128
)

// Idempotency processes Idempotency-Key for mutating HTTP methods. The first
// completed response for a key is stored and replayed for retries of the same
// request. Storage problems degrade to running the handler normally. Each
// round trip to the key table is bounded by timeout (store.DefaultTimeout
// when zero).
func Idempotency(db *gorm.DB, timeout time.Duration) fiber.Handler {
	if timeout <= 0 {
		timeout = store.DefaultTimeout
	}
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(IdempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body())

		// ---- Phase 1: read or create the pending record under a short TX
		var (
			existing models.IdempotencyKey
			created  bool
		)
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where(&models.IdempotencyKey{Key: key}).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			rec := models.IdempotencyKey{
				Key:         key,
				RequestHash: reqHash,
				Method:      method,
				Path:        path,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			existing = rec
			created = true
			return nil
		})
		if err != nil && ctx.Err() == nil {
			// lost a create race: the winner's row is readable now
			err = db.WithContext(ctx).Where(&models.IdempotencyKey{Key: key}).First(&existing).Error
		}
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency storage unavailable, passing through")
			return c.Next()
		}

		if existing.RequestHash != reqHash {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Idempotency-Key reuse with different request"})
		}
		if existing.ResponseStatus != 0 {
			c.Set(IdempotentReplayHeader, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}
		if !created {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "request with this Idempotency-Key is still in progress"})
		}

		// ---- Run the handler once; render errors here so the final response can be stored.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				release(c.UserContext(), db, timeout, key)
				return herr
			}
		}

		// ---- Phase 2: store the response, or release the key for retries on 5xx
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release(c.UserContext(), db, timeout, key)
			return nil
		}
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)

		ctx, cancel = context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		err = db.WithContext(ctx).Model(&models.IdempotencyKey{}).
			Where(&models.IdempotencyKey{Key: key}).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   blob,
				"completed_at":    &now,
			}).Error
		if err != nil {
			// best-effort: don't break the successful response
			log.Warn().Err(err).Str("key", key).Msg("idempotency response not stored")
		}
		return nil
	}
}

// requestHash builds a deterministic hash of method|path|body.
func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func release(parent context.Context, db *gorm.DB, timeout time.Duration, key string) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	if err := db.WithContext(ctx).Where(&models.IdempotencyKey{Key: key}).Delete(&models.IdempotencyKey{}).Error; err != nil {
		log.Warn().Err(err).Str("key", key).Msg("idempotency key not released")
	}
}
