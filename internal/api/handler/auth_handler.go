package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/speakup/session-authority/internal/core/domain"
	"github.com/speakup/session-authority/internal/core/ports"
)

const defaultRefreshCookie = "refreshToken"

// AuthHandlerConfig controls how refresh tokens are delivered to clients.
type AuthHandlerConfig struct {
	Delivery     domain.DeliveryMode
	CookieName   string
	CookieSecure bool
	CookieDomain string
	RefreshTTL   time.Duration
}

type AuthHandler struct {
	authService ports.AuthService
	cfg         AuthHandlerConfig
}

func NewAuthHandler(authService ports.AuthService, cfg AuthHandlerConfig) *AuthHandler {
	if cfg.Delivery == "" {
		cfg.Delivery = domain.DeliveryCookie
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultRefreshCookie
	}
	return &AuthHandler{authService: authService, cfg: cfg}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "user registered successfully"})
}

// Login authenticates a user and starts a session.
//
// @Summary      Login
// @Description  The identifier is treated as an email when it contains "@".
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Login(c.Request().Context(), req.identifier(), req.Password)
	if err != nil {
		return err
	}

	resp := loginResponse{AccessToken: session.AccessToken}
	if h.cfg.Delivery == domain.DeliveryCookie {
		c.SetCookie(h.refreshCookie(session.RefreshToken, h.cfg.RefreshTTL))
	} else {
		resp.RefreshToken = session.RefreshToken
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshToken exchanges a refresh token for a new access token.
//
// @Summary      Refresh access token
// @Description  Reads the refresh token from the cookie or the body, depending on server configuration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (body delivery only)"
// @Success      200   {object}  accessTokenResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	token, err := h.presentedRefreshToken(c)
	if err != nil {
		return err
	}

	access, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessTokenResponse{AccessToken: access})
}

// Logout ends the caller's session.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	if h.cfg.Delivery == domain.DeliveryCookie {
		c.SetCookie(h.refreshCookie("", -1))
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out successfully"})
}

// ValidateToken reports whether an access token is currently valid.
//
// @Summary      Validate access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      validateTokenRequest  true  "Token to check"
// @Success      200   {object}  validateTokenResponse
// @Router       /validate-token [post]
func (h *AuthHandler) ValidateToken(c echo.Context) error {
	var req validateTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, validateTokenResponse{Valid: false})
	}
	valid := h.authService.ValidateToken(c.Request().Context(), req.Token)
	return c.JSON(http.StatusOK, validateTokenResponse{Valid: valid})
}

func (h *AuthHandler) presentedRefreshToken(c echo.Context) (string, error) {
	if h.cfg.Delivery == domain.DeliveryCookie {
		cookie, err := c.Cookie(h.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			return "", domain.ErrTokenMissing
		}
		return cookie.Value, nil
	}

	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return "", domain.ErrTokenMissing
	}
	return req.RefreshToken, nil
}

// refreshCookie builds the refresh token cookie; a negative ttl deletes it.
func (h *AuthHandler) refreshCookie(value string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	switch {
	case ttl < 0:
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	case ttl > 0:
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	return cookie
}
