package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerDrive/internal/app/service"
	"go.uber.org/zap"
)

// serviceError maps a share service error onto an HTTP response. Anything that is
// not a known domain error is logged and reported as a generic 500.
func serviceError(c *fiber.Ctx, logger *zap.Logger, err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, notFoundMsg)
	case errors.Is(err, service.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, "you do not own this resource")
	case errors.Is(err, service.ErrExpired):
		return errorJSON(c, fiber.StatusGone, "share link has expired")
	default:
		logger.Error("share request failed",
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
		return errorJSON(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

func uintParam(c *fiber.Ctx, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
