package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request identifier used for tracing.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a stable identifier, preserving one supplied
// by the caller.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Set(RequestIDHeader, reqID)
		}

		c.Locals(RequestIDHeader, reqID)

		return c.Next()
	}
}
