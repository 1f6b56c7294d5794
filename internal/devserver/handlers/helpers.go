package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/middleware"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

// Error answers with the plain {"error": message} body every route uses.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// ResourceIDRequired answers the delete and update routes whose request
// carries no resource id.
func ResourceIDRequired(c *fiber.Ctx) error {
	return Error(c, fiber.StatusBadRequest, "resource id required")
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func decodeBody(c *fiber.Ctx, out interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, out)
}

func currentUser(c *fiber.Ctx) *models.User {
	return middleware.GetCurrentUser(c)
}

// listParams is the parsed ?i=&l=&f=&o= query of listing routes. Limit is
// negative when absent.
type listParams struct {
	From  int
	Limit int
	Field string
	Order filez.SortOrder
}

func parseListParams(c *fiber.Ctx) (listParams, error) {
	p := listParams{Limit: -1, Field: c.Query("f"), Order: filez.SortOrder(c.Query("o"))}
	if raw := c.Query("i"); raw != "" {
		from, err := strconv.Atoi(raw)
		if err != nil || from < 0 {
			return p, errors.New("invalid from index")
		}
		p.From = from
	}
	if raw := c.Query("l"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return p, errors.New("invalid limit")
		}
		p.Limit = limit
	}
	return p, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func internalError(c *fiber.Ctx, action string, err error, message string) error {
	details := map[string]interface{}{
		"path":       c.Path(),
		"request_id": middleware.RequestID(c),
	}
	if user := currentUser(c); user != nil {
		logger.ErrorWithUser(user.ID.String(), action, err, details)
	} else {
		logger.Error(action, err, details)
	}
	return Error(c, fiber.StatusInternalServerError, message)
}
