package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/speakup/session-authority/internal/api/metrics"
	"github.com/speakup/session-authority/internal/core/domain"
)

// ContextUserID is the echo.Context key holding the authenticated user id.
const ContextUserID = "user_id"

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// Auth validates the bearer access token and injects the user id into context.
// A missing token or an expired one gets 401. Any other failure, including a
// non-Bearer scheme, gets 403.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "access denied. no token provided")
			}

			// No token after the scheme is treated like a missing header. A token
			// under any scheme other than Bearer fails verification.
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "access denied. no token provided")
			}
			if !strings.EqualFold(parts[0], "bearer") {
				metrics.TokenRejectionsTotal.WithLabelValues("malformed").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}

			userID, err := verifier.VerifyAccessToken(strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrTokenExpired) {
					metrics.TokenRejectionsTotal.WithLabelValues("expired").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				metrics.TokenRejectionsTotal.WithLabelValues("invalid").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}

			c.Set(ContextUserID, userID)
			return next(c)
		}
	}
}

// UserID returns the id stored by Auth, or "" when the request is anonymous.
func UserID(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}
