package middlewares

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	RoleAdmin = "admin"
)

// Claims is our JWT payload (subject=operator, plus role).
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin validates an HS256 bearer token carrying role=admin and
// populates c.Locals("adminSubject"). An empty secret leaves the route open.
func RequireAdmin(secret string) fiber.Handler {
	key := []byte(strings.TrimSpace(secret))
	return func(c *fiber.Ctx) error {
		if len(key) == 0 {
			return c.Next()
		}

		h := c.Get(authHeader)
		if h == "" || !strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing/invalid Authorization header"})
		}
		raw := strings.TrimSpace(h[len(bearerPrefix):])
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid bearer token"})
		}

		claims, err := ParseAdminToken(key, raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		if claims.Role != RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin role required"})
		}

		c.Locals("adminSubject", claims.Subject)
		return c.Next()
	}
}

// ParseAdminToken verifies an HS256 token signed with key.
func ParseAdminToken(key []byte, raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token missing subject")
	}
	return &claims, nil
}

// GenerateAdminToken signs a new HS256 admin token for subject, expiring after ttl.
func GenerateAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("admin JWT secret not configured (set ADMIN_JWT_SECRET)")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
