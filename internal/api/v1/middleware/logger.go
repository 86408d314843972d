// Package middleware provides fiber middleware shared by the API routes
package middleware

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDKey is the fiber locals key holding the request id
const RequestIDKey = "requestid"

// RequestID returns a middleware that tags every request with a UUID, reusing
// an incoming X-Request-ID header when present
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: RequestIDKey,
	})
}

// Logger returns a middleware that logs HTTP requests
func Logger(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Continue chain
		err := c.Next()

		latency := time.Since(start)

		entry := log.WithFields(logrus.Fields{
			"status":  c.Response().StatusCode(),
			"latency": latency.String(),
			"ip":      c.IP(),
			"method":  c.Method(),
			"path":    c.Path(),
			"handler": c.Route().Name,
		})
		if id, ok := c.Locals(RequestIDKey).(string); ok {
			entry = entry.WithField("request_id", id)
		}
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Info("Request")

		return err
	}
}
