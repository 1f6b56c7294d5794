package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/services"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/storage"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

const metadataHeader = "X-Filez-Metadata"

type FilesHandler struct {
	DB     *gorm.DB
	Store  storage.Store
	Access *services.AccessService
	Groups *services.GroupService
}

func NewFilesHandler(db *gorm.DB, store storage.Store, access *services.AccessService, groups *services.GroupService) *FilesHandler {
	return &FilesHandler{DB: db, Store: store, Access: access, Groups: groups}
}

func (h *FilesHandler) CreateFile(c *fiber.Ctx) error {
	user := currentUser(c)

	var meta filez.CreateFileRequest
	if err := json.Unmarshal([]byte(c.Get(metadataHeader)), &meta); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid "+metadataHeader+" header")
	}
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		return Error(c, fiber.StatusBadRequest, "name is required")
	}
	if meta.MimeType == "" {
		meta.MimeType = "application/octet-stream"
	}

	if status, msg := h.checkStaticGroups(c.UserContext(), user, meta.StaticFileGroupIDs); status != 0 {
		return Error(c, status, msg)
	}

	content := c.Body()
	size := int64(len(content))
	if !user.CanStore(size) {
		return Error(c, fiber.StatusForbidden, "storage limit exceeded")
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])
	now := time.Now().Unix()
	created := now
	if meta.Created != nil {
		created = *meta.Created
	}

	file := models.File{
		Name:               meta.Name,
		OwnerID:            user.ID,
		MimeType:           meta.MimeType,
		Size:               size,
		Created:            created,
		Modified:           meta.Modified,
		StaticFileGroupIDs: meta.StaticFileGroupIDs,
		Keywords:           []string{},
		PermissionIDs:      []string{},
		SHA256:             &checksum,
		AppData:            map[string]interface{}{},
	}
	file.ID = uuid.New()
	file.StoragePath = user.ID.String() + "/" + file.ID.String()

	if err := h.Store.Put(c.UserContext(), file.StoragePath, bytes.NewReader(content), size, file.MimeType); err != nil {
		return internalError(c, "file_store_failed", err, "failed to store file content")
	}

	err := h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			return err
		}
		return tx.Model(user).Updates(map[string]interface{}{
			"used_storage": gorm.Expr("used_storage + ?", size),
			"used_files":   gorm.Expr("used_files + ?", 1),
		}).Error
	})
	if err != nil {
		_ = h.Store.Delete(context.Background(), file.StoragePath)
		return internalError(c, "file_create_failed", err, "failed to create file")
	}

	logger.InfoWithUser(user.ID.String(), "file_created", map[string]interface{}{
		"file_id":   file.ID.String(),
		"name":      file.Name,
		"size":      size,
		"mime_type": file.MimeType,
	})

	apiFile, err := h.Groups.FileToAPI(c.UserContext(), &file)
	if err != nil {
		return internalError(c, "file_render_failed", err, "failed to load file")
	}
	return c.Status(fiber.StatusCreated).JSON(apiFile)
}

func (h *FilesHandler) GetFile(c *fiber.Ctx) error {
	file, err := h.loadAccessible(c, filez.ActionGetFile)
	if err != nil || file == nil {
		return err
	}

	rc, err := h.Store.Get(c.UserContext(), file.StoragePath)
	if errors.Is(err, storage.ErrNotFound) {
		return Error(c, fiber.StatusNotFound, "file content not found")
	}
	if err != nil {
		return internalError(c, "file_read_failed", err, "failed to read file content")
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return internalError(c, "file_read_failed", err, "failed to read file content")
	}

	now := time.Now().Unix()
	err = h.DB.WithContext(c.UserContext()).Model(file).Updates(map[string]interface{}{
		"accessed":       now,
		"accessed_count": gorm.Expr("accessed_count + ?", 1),
	}).Error
	if err != nil {
		logger.ErrorWithUser(currentUser(c).ID.String(), "file_access_record_failed", err, map[string]interface{}{
			"file_id": file.ID.String(),
		})
	}

	c.Set(fiber.HeaderContentType, file.MimeType)
	return c.Status(fiber.StatusOK).Send(content)
}

func (h *FilesHandler) GetFileInfo(c *fiber.Ctx) error {
	file, err := h.loadAccessible(c, filez.ActionGetFileInfo)
	if err != nil || file == nil {
		return err
	}
	apiFile, err := h.Groups.FileToAPI(c.UserContext(), file)
	if err != nil {
		return internalError(c, "file_render_failed", err, "failed to load file")
	}
	return c.Status(fiber.StatusOK).JSON(apiFile)
}

func (h *FilesHandler) GetFileInfosByGroupID(c *fiber.Ctx) error {
	user := currentUser(c)
	params, err := parseListParams(c)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusNotFound, "group not found")
	}
	var group models.FileGroup
	if err := h.DB.WithContext(c.UserContext()).First(&group, "id = ?", groupID).Error; err != nil {
		if isNotFound(err) {
			return Error(c, fiber.StatusNotFound, "group not found")
		}
		return internalError(c, "group_lookup_failed", err, "failed to load group")
	}
	if !h.Access.CanAccessGroup(c.UserContext(), user, &group, filez.ActionListGroupItems) {
		return Error(c, fiber.StatusForbidden, "access denied")
	}

	files, err := h.Groups.Members(c.UserContext(), &group)
	if err != nil {
		return internalError(c, "group_members_failed", err, "failed to list group")
	}
	if err := services.SortFiles(files, params.Field, params.Order); err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}
	return h.renderFiles(c, services.Page(files, params.From, params.Limit))
}

func (h *FilesHandler) Search(c *fiber.Ctx) error {
	user := currentUser(c)
	var req filez.SearchRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var files []models.File
	if req.GroupID != "" {
		groupID, err := parseUUID(req.GroupID)
		if err != nil {
			return Error(c, fiber.StatusNotFound, "group not found")
		}
		var group models.FileGroup
		if err := h.DB.WithContext(c.UserContext()).First(&group, "id = ?", groupID).Error; err != nil {
			if isNotFound(err) {
				return Error(c, fiber.StatusNotFound, "group not found")
			}
			return internalError(c, "group_lookup_failed", err, "failed to load group")
		}
		if !h.Access.CanAccessGroup(c.UserContext(), user, &group, filez.ActionListGroupItems) {
			return Error(c, fiber.StatusForbidden, "access denied")
		}
		if files, err = h.Groups.Members(c.UserContext(), &group); err != nil {
			return internalError(c, "group_members_failed", err, "failed to search group")
		}
	} else {
		err := h.DB.WithContext(c.UserContext()).Where("owner_id = ?", user.ID).Order("created_at").Find(&files).Error
		if err != nil {
			return internalError(c, "file_search_failed", err, "failed to search files")
		}
	}

	return h.renderFiles(c, services.SearchFiles(files, req.Query, req.Limit))
}

func (h *FilesHandler) UpdateFileInfos(c *fiber.Ctx) error {
	user := currentUser(c)
	var req filez.UpdateFileInfosRequest
	if err := decodeBody(c, &req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	fileID, err := parseUUID(req.FileID)
	if err != nil {
		return Error(c, fiber.StatusNotFound, "file not found")
	}
	var file models.File
	if err := h.DB.WithContext(c.UserContext()).First(&file, "id = ?", fileID).Error; err != nil {
		if isNotFound(err) {
			return Error(c, fiber.StatusNotFound, "file not found")
		}
		return internalError(c, "file_lookup_failed", err, "failed to load file")
	}
	if !h.Access.CanAccessFile(c.UserContext(), user, &file, filez.ActionUpdateFileInfo) {
		return Error(c, fiber.StatusForbidden, "access denied")
	}
	if file.Readonly {
		return Error(c, fiber.StatusForbidden, "file is readonly")
	}

	var previousOwner uuid.UUID
	field := req.Field
	switch field.Kind {
	case filez.FieldName:
		name := strings.TrimSpace(field.Text)
		if name == "" {
			return Error(c, fiber.StatusBadRequest, "name is required")
		}
		file.Name = name
	case filez.FieldMimeType:
		if field.Text == "" {
			return Error(c, fiber.StatusBadRequest, "mime type is required")
		}
		file.MimeType = field.Text
	case filez.FieldKeywords:
		file.Keywords = nonNilStrings(field.Items)
	case filez.FieldStaticFileGroupIDs:
		if status, msg := h.checkStaticGroups(c.UserContext(), user, field.Items); status != 0 {
			return Error(c, status, msg)
		}
		file.StaticFileGroupIDs = nonNilStrings(field.Items)
	case filez.FieldOwnerID:
		if file.OwnerID != user.ID {
			return Error(c, fiber.StatusForbidden, "only the owner can transfer a file")
		}
		ownerID, err := parseUUID(field.Text)
		if err != nil {
			return Error(c, fiber.StatusBadRequest, "invalid owner id")
		}
		var owner models.User
		if err := h.DB.WithContext(c.UserContext()).First(&owner, "id = ?", ownerID).Error; err != nil {
			return Error(c, fiber.StatusBadRequest, "new owner not found")
		}
		previousOwner = file.OwnerID
		file.OwnerID = owner.ID
	default:
		return Error(c, fiber.StatusBadRequest, "unsupported field")
	}

	err = h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&file).Error; err != nil {
			return err
		}
		if previousOwner == uuid.Nil || previousOwner == file.OwnerID {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", previousOwner).Updates(map[string]interface{}{
			"used_storage": gorm.Expr("used_storage - ?", file.Size),
			"used_files":   gorm.Expr("used_files - ?", 1),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", file.OwnerID).Updates(map[string]interface{}{
			"used_storage": gorm.Expr("used_storage + ?", file.Size),
			"used_files":   gorm.Expr("used_files + ?", 1),
		}).Error
	})
	if err != nil {
		return internalError(c, "file_update_failed", err, "failed to update file")
	}

	logger.InfoWithUser(user.ID.String(), "file_infos_updated", map[string]interface{}{
		"file_id": file.ID.String(),
		"field":   string(field.Kind),
	})

	apiFile, err := h.Groups.FileToAPI(c.UserContext(), &file)
	if err != nil {
		return internalError(c, "file_render_failed", err, "failed to load file")
	}
	return c.Status(fiber.StatusOK).JSON(apiFile)
}

// loadAccessible resolves the :id file and checks action. A nil file with a
// nil error means the response has been written.
func (h *FilesHandler) loadAccessible(c *fiber.Ctx, action string) (*models.File, error) {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, Error(c, fiber.StatusNotFound, "file not found")
	}
	var file models.File
	if err := h.DB.WithContext(c.UserContext()).First(&file, "id = ?", fileID).Error; err != nil {
		if isNotFound(err) {
			return nil, Error(c, fiber.StatusNotFound, "file not found")
		}
		return nil, internalError(c, "file_lookup_failed", err, "failed to load file")
	}
	if !h.Access.CanAccessFile(c.UserContext(), currentUser(c), &file, action) {
		return nil, Error(c, fiber.StatusForbidden, "access denied")
	}
	return &file, nil
}

// checkStaticGroups returns a non-zero status when ids are not all static
// groups owned by user.
func (h *FilesHandler) checkStaticGroups(ctx context.Context, user *models.User, ids []string) (int, string) {
	if len(ids) == 0 {
		return 0, ""
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return fiber.StatusBadRequest, "invalid group id " + id
		}
	}
	var groups []models.FileGroup
	if err := h.DB.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return fiber.StatusInternalServerError, "failed to load groups"
	}
	if len(groups) != len(unique(ids)) {
		return fiber.StatusBadRequest, "unknown group"
	}
	for _, group := range groups {
		if group.OwnerID != user.ID {
			return fiber.StatusForbidden, "group belongs to another user"
		}
		if group.GroupType != filez.FileGroupTypeStatic {
			return fiber.StatusBadRequest, "files can only be added to static groups"
		}
	}
	return 0, ""
}

func (h *FilesHandler) renderFiles(c *fiber.Ctx, files []models.File) error {
	out := make([]filez.File, 0, len(files))
	for i := range files {
		apiFile, err := h.Groups.FileToAPI(c.UserContext(), &files[i])
		if err != nil {
			return internalError(c, "file_render_failed", err, "failed to load files")
		}
		out = append(out, apiFile)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
