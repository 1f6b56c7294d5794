package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

type PermissionsHandler struct {
	DB *gorm.DB
}

func NewPermissionsHandler(db *gorm.DB) *PermissionsHandler {
	return &PermissionsHandler{DB: db}
}

func isValidResourceType(t filez.ResourceType) bool {
	switch t {
	case filez.ResourceFile, filez.ResourceFileGroup, filez.ResourceUser, filez.ResourceUserGroup:
		return true
	default:
		return false
	}
}

func (h *PermissionsHandler) CreatePermission(c *fiber.Ctx) error {
	user := currentUser(c)
	var req filez.CreatePermissionRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "name is required")
	}
	switch req.UseType {
	case "":
		req.UseType = filez.PermissionUseMultiple
	case filez.PermissionUseOnce, filez.PermissionUseMultiple:
	default:
		return Error(c, fiber.StatusBadRequest, "use_type must be Once or Multiple")
	}
	if !isValidResourceType(req.Content.Type) {
		return Error(c, fiber.StatusBadRequest, "invalid content type")
	}

	permission := models.Permission{
		Name:    req.Name,
		OwnerID: user.ID,
		UseType: req.UseType,
		Content: req.Content,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&permission).Error; err != nil {
		return internalError(c, "permission_create_failed", err, "failed to create permission")
	}

	logger.InfoWithUser(user.ID.String(), "permission_created", map[string]interface{}{
		"permission_id": permission.ID.String(),
		"use_type":      string(permission.UseType),
	})

	return c.Status(fiber.StatusCreated).JSON(filez.CreatePermissionResponse{PermissionID: permission.ID.String()})
}

func (h *PermissionsHandler) GetOwnPermissions(c *fiber.Ctx) error {
	user := currentUser(c)
	var permissions []models.Permission
	if err := h.DB.WithContext(c.UserContext()).Where("owner_id = ?", user.ID).Order("created_at").Find(&permissions).Error; err != nil {
		return internalError(c, "permission_list_failed", err, "failed to list permissions")
	}

	out := make([]filez.Permission, 0, len(permissions))
	for i := range permissions {
		out = append(out, permissions[i].ToAPI())
	}
	return c.Status(fiber.StatusOK).JSON(out)
}
