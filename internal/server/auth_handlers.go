package server

import (
	"errors"
	"strings"
	"time"

	"plume/internal/middleware"
	"plume/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenLifetime = 24 * time.Hour

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegister(req *registerRequest) error {
	fields := map[string]string{}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 30 {
		fields["username"] = "username must be between 3 and 30 characters"
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "a valid email address is required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}

	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

// handleRegister creates a new account.
//
//	@Summary	Register a new user
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		credentials	body		registerRequest	true	"Account details"
//	@Success	201			{object}	models.User
//	@Failure	400			{object}	models.ErrorResponse
//	@Router		/api/auth/register [post]
func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondServiceError(c, models.NewValidationError("invalid request body"))
	}
	if err := validateRegister(&req); err != nil {
		return respondServiceError(c, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		Status:   models.UserStatusActive,
		Language: s.cfg.DefaultLanguage,
		Timezone: "Europe/Paris",
	}
	if err := s.users.Create(c.UserContext(), user); err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created successfully",
		"user":    user,
	})
}

// handleLogin authenticates a user and issues a JWT.
//
//	@Summary	Log in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		credentials	body	loginRequest	true	"Login credentials"
//	@Success	200
//	@Failure	401	{object}	models.ErrorResponse
//	@Router		/api/auth/login [post]
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondServiceError(c, models.NewValidationError("invalid request body"))
	}

	user, err := s.users.GetByEmail(c.UserContext(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same answer as a wrong password so the endpoint does not leak
			// which emails exist.
			return respondServiceError(c, models.NewUnauthenticatedError("invalid credentials"))
		}
		return respondServiceError(c, models.NewInternalError(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return respondServiceError(c, models.NewUnauthenticatedError("invalid credentials"))
	}
	if user.Status != models.UserStatusActive {
		return respondServiceError(c, models.NewUnauthorizedError("account is not active"))
	}

	now := time.Now()
	token, err := middleware.IssueToken(user.ID, s.cfg.JWTSecret, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	})
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	user.LastLoginAt = &now
	if err := s.users.Update(c.UserContext(), user); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to record last login",
			"user_id", user.ID, "error", err.Error())
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	user, err := s.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondServiceError(c, models.NewNotFoundError("User", userID))
		}
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.JSON(user)
}
