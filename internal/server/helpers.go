package server

import (
	"errors"
	"strconv"

	"plume/internal/middleware"
	"plume/internal/models"
	"plume/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// parseID parses the named route parameter into a positive id.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("invalid " + name)
	}
	return uint(id), nil
}

// parsePageParams reads page/limit query parameters; out-of-range values are
// coerced, never rejected.
func parsePageParams(c *fiber.Ctx) pagination.Params {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", pagination.DefaultLimit)
	return pagination.NewParams(page, limit)
}

// optionalUserID returns the authenticated user id, or 0 for anonymous calls.
func optionalUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// requireUserID returns the user id set by AuthRequired.
func requireUserID(c *fiber.Ctx) (uint, error) {
	uid, ok := c.Locals("userID").(uint)
	if !ok || uid == 0 {
		return 0, models.NewUnauthenticatedError("authentication required")
	}
	return uid, nil
}

// respondServiceError maps the application error taxonomy onto HTTP statuses.
// Unknown errors are logged and answered opaque.
func respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case models.CodeValidation:
		status = fiber.StatusBadRequest
	case models.CodeNotFound:
		status = fiber.StatusNotFound
	case models.CodeUnauthenticated:
		status = fiber.StatusUnauthorized
	case models.CodeUnauthorized:
		status = fiber.StatusForbidden
	}

	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request handler error",
			"path", c.Path(), "error", appErr.Error())
	}

	return models.RespondWithError(c, status, appErr)
}
