package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patricktravel/portal/internal/core/domain"
	"github.com/patricktravel/portal/internal/core/ports"
	"github.com/patricktravel/portal/internal/i18n"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new account and returns a session token.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req.toDomain())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{
		Message: localize(c, i18n.KeyRegistered),
		User:    res.User,
		Token:   res.Token,
	})
}

// Login authenticates a user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{
		Message: localize(c, i18n.KeyLoggedIn),
		User:    res.User,
		Token:   res.Token,
	})
}

// Confirm consumes an email confirmation link.
//
// @Summary      Confirm email address
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true   "Confirmation token"
// @Param        type   query     string  false  "Link type, only signup is accepted"
// @Success      200    {object}  authResponse
// @Failure      400    {object}  map[string]string
// @Router       /api/auth/confirm [get]
func (h *AuthHandler) Confirm(c echo.Context) error {
	if t := c.QueryParam("type"); t != "" && t != "signup" {
		return domain.ErrInvalidLink
	}

	user, err := h.authService.ConfirmEmail(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{
		Message: localize(c, i18n.KeyEmailConfirmed),
		User:    user,
	})
}

// ForgotPassword sends a reset link when the address belongs to an account.
// The response is the same either way.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      202   {object}  messageResponse
// @Failure      422   {object}  map[string]string
// @Failure      501   {object}  map[string]string
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: localize(c, i18n.KeyResetRequested)})
}

// ResetPassword sets a new password using a reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      501   {object}  map[string]string
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: localize(c, i18n.KeyPasswordReset)})
}

// Profile returns the signed-in user's account data.
//
// @Summary      Current user's profile
// @Tags         auth
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  profileResponse
// @Failure      404  {object}  map[string]string
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: user})
}
