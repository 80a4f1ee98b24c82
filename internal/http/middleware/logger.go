package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger creates a request logging middleware using zap. Probe endpoints are
// logged at debug level; 4xx at warn and 5xx at error.
func Logger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", redactSharePath(c.Path())),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		if requestID, ok := c.Locals("request_id").(string); ok {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if requesterID, ok := Requester(c); ok {
			fields = append(fields, zap.Uint64("requester_id", requesterID))
		}

		if err != nil {
			logger.Error("request error", append(fields, zap.Error(err))...)
			return err
		}

		logger.Log(levelFor(c.Path(), status), "request", fields...)
		return nil
	}
}

func levelFor(path string, status int) zapcore.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zapcore.WarnLevel
	case path == "/health" || path == "/ready":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// redactSharePath keeps share tokens out of the logs; the first 8 characters
// are enough to correlate requests.
func redactSharePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/share/")
	if !ok {
		return path
	}
	token, tail, _ := strings.Cut(rest, "/")
	if len(token) > 8 {
		token = token[:8] + "..."
	}
	if tail != "" {
		return "/share/" + token + "/" + tail
	}
	return "/share/" + token
}
