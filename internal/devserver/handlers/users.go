package handlers

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/middleware"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/services"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB     *gorm.DB
	Limits config.LimitsConfig
}

func NewUsersHandler(db *gorm.DB, limits config.LimitsConfig) *UsersHandler {
	return &UsersHandler{DB: db, Limits: limits}
}

// CreateUser registers the session subject. The first user becomes an admin.
// Registering twice returns the existing user.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	if user := currentUser(c); user != nil {
		return c.Status(fiber.StatusOK).JSON(user.ToAPI())
	}

	identity := middleware.GetIdentity(c)
	if identity == nil {
		return Error(c, fiber.StatusUnauthorized, "missing session")
	}

	var count int64
	if err := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Count(&count).Error; err != nil {
		return internalError(c, "user_count_failed", err, "failed to create user")
	}
	role := filez.UserRoleUser
	if count == 0 {
		role = filez.UserRoleAdmin
	}

	user := models.User{
		Subject:      identity.Subject,
		Name:         optional(identity.Name),
		Email:        optional(identity.Email),
		Role:         role,
		Status:       filez.UserStatusActive,
		MaxStorage:   h.Limits.MaxStorage,
		MaxFiles:     h.Limits.MaxFiles,
		UserGroupIDs: []string{},
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		return internalError(c, "user_create_failed", err, "failed to create user")
	}
	middleware.SetCurrentUser(c, &user)

	logger.InfoWithUser(user.ID.String(), "user_created", map[string]interface{}{
		"subject": user.Subject,
		"role":    string(user.Role),
	})

	return c.Status(fiber.StatusCreated).JSON(user.ToAPI())
}

func (h *UsersHandler) GetUserInfo(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(currentUser(c).ToAPI())
}

func (h *UsersHandler) GetUserList(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	var users []models.User
	if err := h.DB.WithContext(c.UserContext()).Order("created_at").Find(&users).Error; err != nil {
		return internalError(c, "user_list_failed", err, "failed to list users")
	}
	if err := sortByName(users, params, func(u models.User) string { return deref(u.Name) }); err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	page := services.Page(users, params.From, params.Limit)
	out := make([]filez.User, 0, len(page))
	for i := range page {
		out = append(out, page[i].ToAPI())
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

// GetUserGroupList lists public groups plus the caller's own and joined ones.
func (h *UsersHandler) GetUserGroupList(c *fiber.Ctx) error {
	user := currentUser(c)
	params, err := parseListParams(c)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	query := h.DB.WithContext(c.UserContext()).
		Where("visibility = ? OR owner_id = ?", filez.UserGroupPublic, user.ID)
	if len(user.UserGroupIDs) > 0 {
		query = query.Or("id IN ?", user.UserGroupIDs)
	}
	var groups []models.UserGroup
	if err := query.Order("created_at").Find(&groups).Error; err != nil {
		return internalError(c, "user_group_list_failed", err, "failed to list user groups")
	}
	if err := sortByName(groups, params, func(g models.UserGroup) string { return g.Name }); err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	page := services.Page(groups, params.From, params.Limit)
	out := make([]filez.UserGroup, 0, len(page))
	for i := range page {
		out = append(out, page[i].ToAPI())
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

type createUserGroupRequest struct {
	Name       string                    `json:"name"`
	Visibility filez.UserGroupVisibility `json:"visibility"`
}

// CreateUserGroup creates a user group and adds the creator to it.
func (h *UsersHandler) CreateUserGroup(c *fiber.Ctx) error {
	user := currentUser(c)
	var req createUserGroupRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "name is required")
	}
	switch req.Visibility {
	case "":
		req.Visibility = filez.UserGroupPrivate
	case filez.UserGroupPublic, filez.UserGroupPrivate:
	default:
		return Error(c, fiber.StatusBadRequest, "visibility must be Public or Private")
	}

	group := models.UserGroup{Name: req.Name, OwnerID: user.ID, Visibility: req.Visibility, PermissionIDs: []string{}}
	err := h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		user.UserGroupIDs = append(user.UserGroupIDs, group.ID.String())
		return tx.Save(user).Error
	})
	if err != nil {
		return internalError(c, "user_group_create_failed", err, "failed to create user group")
	}

	logger.InfoWithUser(user.ID.String(), "user_group_created", map[string]interface{}{
		"user_group_id": group.ID.String(),
	})
	return c.Status(fiber.StatusCreated).JSON(group.ToAPI())
}

type joinUserGroupRequest struct {
	UserGroupID string `json:"user_group_id"`
	UserID      string `json:"user_id"`
}

// AddUserGroupMember lets a group owner add another user to the group.
func (h *UsersHandler) AddUserGroupMember(c *fiber.Ctx) error {
	user := currentUser(c)
	var req joinUserGroupRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	groupID, err := parseUUID(req.UserGroupID)
	if err != nil {
		return Error(c, fiber.StatusNotFound, "user group not found")
	}
	var group models.UserGroup
	if err := h.DB.WithContext(c.UserContext()).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Error(c, fiber.StatusNotFound, "user group not found")
		}
		return internalError(c, "user_group_lookup_failed", err, "failed to load user group")
	}
	if group.OwnerID != user.ID {
		return Error(c, fiber.StatusForbidden, "access denied")
	}

	memberID, err := parseUUID(req.UserID)
	if err != nil {
		return Error(c, fiber.StatusNotFound, "user not found")
	}
	var member models.User
	if err := h.DB.WithContext(c.UserContext()).First(&member, "id = ?", memberID).Error; err != nil {
		return Error(c, fiber.StatusNotFound, "user not found")
	}
	for _, id := range member.UserGroupIDs {
		if id == group.ID.String() {
			return c.Status(fiber.StatusOK).JSON(member.ToAPI())
		}
	}
	member.UserGroupIDs = append(member.UserGroupIDs, group.ID.String())
	if err := h.DB.WithContext(c.UserContext()).Save(&member).Error; err != nil {
		return internalError(c, "user_group_join_failed", err, "failed to add member")
	}
	return c.Status(fiber.StatusOK).JSON(member.ToAPI())
}

// CreateUploadSpace reserves an upload space with the caller's remaining quota.
func (h *UsersHandler) CreateUploadSpace(c *fiber.Ctx) error {
	user := currentUser(c)
	space := models.UploadSpace{OwnerID: user.ID}
	if user.MaxStorage > 0 {
		space.MaxStorage = user.MaxStorage - user.UsedStorage
	}
	if user.MaxFiles > 0 {
		space.MaxFiles = user.MaxFiles - user.UsedFiles
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&space).Error; err != nil {
		return internalError(c, "upload_space_create_failed", err, "failed to create upload space")
	}

	logger.InfoWithUser(user.ID.String(), "upload_space_created", map[string]interface{}{
		"upload_space_id": space.ID.String(),
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"upload_space_id": space.ID.String()})
}

func sortByName[T any](items []T, params listParams, name func(T) string) error {
	switch params.Field {
	case "":
		return nil
	case "name":
	default:
		return errors.New("invalid sort field")
	}
	desc := false
	switch params.Order {
	case "", filez.SortAscending:
	case filez.SortDescending:
		desc = true
	default:
		return errors.New("invalid sort order")
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := strings.ToLower(name(items[i])), strings.ToLower(name(items[j]))
		if desc {
			return a > b
		}
		return a < b
	})
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
