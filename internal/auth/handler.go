package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/tradelink/internal/config"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/utils"
)

type userStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	SetVerified(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, hash string) error
	SetRoleByEmail(ctx context.Context, email, role string) error
}

type mailQueue interface {
	EnqueueWelcomeEmail(ctx context.Context, userID, email, name string) error
	EnqueueVerifyEmail(ctx context.Context, userID, email, name, token string) error
	EnqueuePasswordReset(ctx context.Context, userID, email, name, token string) error
}

// Handler serves the /auth routes.
type Handler struct {
	users  userStore
	tokens *utils.Tokens
	mail   mailQueue
	cfg    config.JWT
	log    logrus.FieldLogger
	cost   int
}

func NewHandler(users userStore, tokens *utils.Tokens, mail mailQueue, cfg config.JWT, log logrus.FieldLogger) *Handler {
	return &Handler{users: users, tokens: tokens, mail: mail, cfg: cfg, log: log, cost: bcrypt.DefaultCost}
}

type SignupRequest struct {
	Name            string `json:"name" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=customer worker"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := utils.BindAndValidate(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	ctx := c.Request().Context()

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	u := &user.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := h.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		h.log.WithError(err).Error("signup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	signed, err := h.tokens.Issue(u.ID, u.Role, utils.PurposeAccess, h.cfg.TTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	h.sendVerification(ctx, u)
	if err := h.mail.EnqueueWelcomeEmail(ctx, u.ID, u.Email, u.Name); err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Warn("welcome email not queued")
	}

	return c.JSON(http.StatusCreated, AuthResponse{Token: signed, User: u})
}

func (h *Handler) sendVerification(ctx context.Context, u *user.User) {
	token, err := h.tokens.Issue(u.ID, "", utils.PurposeEmailVerify, h.cfg.VerificationTTL)
	if err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Warn("verification token not issued")
		return
	}
	if err := h.mail.EnqueueVerifyEmail(ctx, u.ID, u.Email, u.Name, token); err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Warn("verification email not queued")
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := utils.BindAndValidate(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.WithError(err).Error("login lookup failed")
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
	}

	signed, err := h.tokens.Issue(u.ID, u.Role, utils.PurposeAccess, h.cfg.TTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusOK, AuthResponse{Token: signed, User: u})
}

// Me returns the currently authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	u, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, u)
}
