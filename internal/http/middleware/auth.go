package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	httpUtil "github.com/sifan077/PowerDrive/internal/http/util"
	"go.uber.org/zap"
)

// RequesterKey is the fiber.Locals key holding the authenticated user id.
const RequesterKey = "requester_id"

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(raw string) (uint64, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// requester id in the request locals.
func RequireAuth(verifier TokenVerifier, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		userID, err := verifier.Verify(strings.TrimSpace(raw))
		if err != nil {
			logger.Debug("rejected access token", zap.Error(err), zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": httpUtil.ErrInvalidToken.Error(),
			})
		}

		c.Locals(RequesterKey, userID)
		return c.Next()
	}
}

// Requester returns the user id stored by RequireAuth.
func Requester(c *fiber.Ctx) (uint64, bool) {
	id, ok := c.Locals(RequesterKey).(uint64)
	return id, ok && id != 0
}
