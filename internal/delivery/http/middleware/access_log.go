package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type AccessLogMiddleware struct {
	logger *log.Logger
}

func NewAccessLogMiddleware(logger *log.Logger) *AccessLogMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return &AccessLogMiddleware{logger: logger}
}

// Middleware tags every request with an X-Request-ID and logs one line per
// request once the handler chain finishes.
func (m *AccessLogMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("X-Request-ID", rid)

		err := c.Next()

		status := c.Response().StatusCode()
		m.logger.Printf("access rid=%s method=%s path=%s status=%d latency=%s ip=%s ua=%q",
			rid,
			c.Method(),
			c.Path(),
			status,
			time.Since(start).Round(time.Microsecond),
			c.IP(),
			string(c.Request().Header.UserAgent()),
		)

		return err
	}
}
