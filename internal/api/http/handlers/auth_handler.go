package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/securehire-auth/internal/api/dto"
	"github.com/spec-kit/securehire-auth/internal/auth"
	"github.com/spec-kit/securehire-auth/internal/domain"
	"github.com/spec-kit/securehire-auth/internal/service"
	apperrors "github.com/spec-kit/securehire-auth/pkg/util/errorutil"
)

// AuthHandler exposes login, session probe, logout and registration.
type AuthHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieJar
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies *auth.CookieJar) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	_, pair, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return loginError(err)
	}

	h.cookies.SetSession(c, pair)
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "Login successful"}})
}

// Load handles GET /auth/load, returning whoever the session filter established.
func (h *AuthHandler) Load(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewBadRequest("no authenticated session")
	}
	return c.JSON(fiber.Map{"data": dto.PrincipalView(p)})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("no authenticated session")
	}
	if err := h.auth.Logout(c.UserContext(), p); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.cookies.Clear(c)
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "Logout successful"}})
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return apperrors.NewValidationError("validation failed", map[string]any{"role": "oneof"})
	}
	switch {
	case role == domain.RoleCandidate && strings.TrimSpace(req.Name) == "":
		return apperrors.NewValidationError("validation failed", map[string]any{"name": "required"})
	case role == domain.RoleRecruiter && strings.TrimSpace(req.CompanyName) == "":
		return apperrors.NewValidationError("validation failed", map[string]any{"companyName": "required"})
	}

	p, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Role:        role,
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
		Website:     req.Website,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return apperrors.NewConflict("email already registered", nil)
		case errors.Is(err, domain.ErrPasswordTooLong):
			return apperrors.NewValidationError("validation failed", map[string]any{"password": "bcryptlen"})
		}
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PrincipalView(p)})
}

func loginError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.NewInvalidCredentials()
	case errors.Is(err, domain.ErrAccountBlocked):
		return apperrors.NewAccountBlocked()
	case errors.Is(err, domain.ErrTooManyAttempts):
		return apperrors.NewTooManyRequests("too many failed login attempts; try again later")
	default:
		return apperrors.NewInternalError(err)
	}
}
