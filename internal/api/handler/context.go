package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/speakup/session-authority/internal/api/middleware"
)

// ctxUserID extracts the user id injected by the Auth middleware. An empty id
// means the route was mounted without Auth; reject rather than act anonymously.
func ctxUserID(c echo.Context) (string, error) {
	userID := middleware.UserID(c)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, nil
}
