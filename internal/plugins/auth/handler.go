package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/validate"
)

// Handler handles HTTP requests for accounts and credentials. Handlers are
// thin: they bind and validate the request, call the service, and write
// JSON. Errors are returned to the app error handler.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Register creates an account (POST /user/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	result, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// Login issues a session token (POST /user/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// AdminLogin issues a session token for the admin (POST /user/adminLogin).
func (h *Handler) AdminLogin(c echo.Context) error {
	var req AdminLoginRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	result, err := h.service.AdminLogin(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ForgotPassword mails a reset token (POST /user/forgotPassword).
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	if err := h.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password reset token sent"})
}

// ResetPassword redeems a reset token (POST /user/resetPassword).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	if err := h.service.ResetPassword(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// UpdatePassword changes the caller's password (POST /user/updatePassword).
func (h *Handler) UpdatePassword(c echo.Context) error {
	var req UpdatePasswordRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	if err := h.service.UpdatePassword(c.Request().Context(), GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// Logout acknowledges a logout (POST /user/logout). Tokens are stateless,
// so the client discarding its token is the whole operation.
func (h *Handler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
