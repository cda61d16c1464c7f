package readapi

import (
	"crypto/subtle"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// sharedSecretHeader carries the scheduler's shared secret on the
// trigger endpoint.
const sharedSecretHeader = "X-Scheduler-Secret"

// SharedSecretAuth builds middleware that authorizes the
// scheduler-trigger endpoint with a constant-time shared-secret
// comparison, exempting loopback remote addresses for local
// development.
func SharedSecretAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isLoopback(c.RealIP()) {
				return next(c)
			}

			provided := c.Request().Header.Get(sharedSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			}
			return next(c)
		}
	}
}

func isLoopback(remoteAddr string) bool {
	ip := net.ParseIP(remoteAddr)
	return ip != nil && ip.IsLoopback()
}
