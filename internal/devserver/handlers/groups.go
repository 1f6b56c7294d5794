package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/services"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

type GroupsHandler struct {
	DB     *gorm.DB
	Groups *services.GroupService
}

func NewGroupsHandler(db *gorm.DB, groups *services.GroupService) *GroupsHandler {
	return &GroupsHandler{DB: db, Groups: groups}
}

func (h *GroupsHandler) CreateGroup(c *fiber.Ctx) error {
	user := currentUser(c)
	var req filez.CreateGroupRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "name is required")
	}
	switch req.GroupType {
	case filez.FileGroupTypeStatic:
		req.DynamicGroupRules = nil
	case filez.FileGroupTypeDynamic:
		if err := services.ValidateRule(req.DynamicGroupRules); err != nil {
			return Error(c, fiber.StatusBadRequest, err.Error())
		}
	default:
		return Error(c, fiber.StatusBadRequest, "group_type must be Static or Dynamic")
	}

	group := models.FileGroup{
		Name:                req.Name,
		OwnerID:             user.ID,
		GroupType:           req.GroupType,
		DynamicGroupRules:   req.DynamicGroupRules,
		PermissionIDs:       nonNilStrings(req.PermissionIDs),
		Keywords:            nonNilStrings(req.Keywords),
		MimeTypes:           nonNilStrings(req.MimeTypes),
		GroupHierarchyPaths: nonNilStrings(req.GroupHierarchyPaths),
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&group).Error; err != nil {
		return internalError(c, "group_create_failed", err, "failed to create group")
	}

	logger.InfoWithUser(user.ID.String(), "group_created", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_type": string(group.GroupType),
	})

	return c.Status(fiber.StatusCreated).JSON(filez.CreateGroupResponse{GroupID: group.ID.String()})
}

func (h *GroupsHandler) GetOwnFileGroups(c *fiber.Ctx) error {
	user := currentUser(c)
	var groups []models.FileGroup
	if err := h.DB.WithContext(c.UserContext()).Where("owner_id = ?", user.ID).Order("created_at").Find(&groups).Error; err != nil {
		return internalError(c, "group_list_failed", err, "failed to list groups")
	}

	out := make([]filez.FileGroup, 0, len(groups))
	for i := range groups {
		apiGroup, err := h.Groups.GroupToAPI(c.UserContext(), &groups[i])
		if err != nil {
			return internalError(c, "group_render_failed", err, "failed to list groups")
		}
		out = append(out, apiGroup)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *GroupsHandler) UpdateFileGroup(c *fiber.Ctx) error {
	user := currentUser(c)
	var req filez.UpdateFileGroupRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	groupID, err := parseUUID(req.FileGroupID)
	if err != nil {
		return Error(c, fiber.StatusNotFound, "group not found")
	}
	var group models.FileGroup
	if err := h.DB.WithContext(c.UserContext()).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Error(c, fiber.StatusNotFound, "group not found")
		}
		return internalError(c, "group_lookup_failed", err, "failed to load group")
	}
	if group.OwnerID != user.ID {
		return Error(c, fiber.StatusForbidden, "access denied")
	}
	if group.Readonly {
		return Error(c, fiber.StatusForbidden, "group is readonly")
	}

	fields := req.Fields
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return Error(c, fiber.StatusBadRequest, "name is required")
		}
		group.Name = name
	}
	if fields.Keywords != nil {
		group.Keywords = fields.Keywords
	}
	if fields.MimeTypes != nil {
		group.MimeTypes = fields.MimeTypes
	}
	if fields.GroupHierarchyPaths != nil {
		group.GroupHierarchyPaths = fields.GroupHierarchyPaths
	}
	if fields.PermissionIDs != nil {
		group.PermissionIDs = fields.PermissionIDs
	}
	if fields.DynamicGroupRules != nil {
		if group.GroupType != filez.FileGroupTypeDynamic {
			return Error(c, fiber.StatusBadRequest, "only dynamic groups have rules")
		}
		if err := services.ValidateRule(fields.DynamicGroupRules); err != nil {
			return Error(c, fiber.StatusBadRequest, err.Error())
		}
		group.DynamicGroupRules = fields.DynamicGroupRules
	}

	if err := h.DB.WithContext(c.UserContext()).Save(&group).Error; err != nil {
		return internalError(c, "group_update_failed", err, "failed to update group")
	}

	logger.InfoWithUser(user.ID.String(), "group_updated", map[string]interface{}{
		"group_id": group.ID.String(),
	})

	apiGroup, err := h.Groups.GroupToAPI(c.UserContext(), &group)
	if err != nil {
		return internalError(c, "group_render_failed", err, "failed to load group")
	}
	return c.Status(fiber.StatusOK).JSON(apiGroup)
}
