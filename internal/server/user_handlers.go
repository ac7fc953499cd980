package server

import (
	"errors"

	"plume/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// handleGetUser returns a public user profile.
//
//	@Summary	Get a user profile
//	@Tags		users
//	@Produce	json
//	@Param		id	path		int	true	"User ID"
//	@Success	200	{object}	models.User
//	@Failure	404	{object}	models.ErrorResponse
//	@Router		/api/users/{id} [get]
func (s *Server) handleGetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	user, err := s.users.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondServiceError(c, models.NewNotFoundError("User", id))
		}
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.JSON(user)
}
