package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kitchenhelper/users-service/internal/core/ports"
)

// RefreshCookieName carries the refresh token between sign-in and renewal.
const RefreshCookieName = "refresh_token"

const tokenTypeBearer = "Bearer"

type AuthHandler struct {
	authService ports.AuthService
	refreshTTL  time.Duration
}

// NewAuthHandler builds the sign-in and token renewal endpoints. refreshTTL
// sets the refresh cookie max-age.
func NewAuthHandler(authService ports.AuthService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, refreshTTL: refreshTTL}
}

// SignIn authenticates a user by email or phone number and password.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Email or phone number"
// @Param        password  formData  string  true  "Password"
// @Success      200       {object}  tokenResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      422       {object}  errorResponse
// @Failure      429       {object}  errorResponse
// @Router       /api/users/sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	pair, err := h.authService.SignIn(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: tokenTypeBearer})
}

// RefreshToken exchanges the refresh_token cookie for a new access token.
//
// @Summary      Renew access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/users/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var refresh string
	cookie, err := c.Cookie(RefreshCookieName)
	switch {
	case err == nil:
		refresh = cookie.Value
	case errors.Is(err, http.ErrNoCookie):
	default:
		return err
	}

	token, err := h.authService.Refresh(c.Request().Context(), refresh)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: tokenTypeBearer})
}
