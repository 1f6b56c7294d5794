package services

import (
	"context"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

// AccessService evaluates permission ACLs attached to files and file groups.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// CanAccessFile grants owners everything; anyone else needs a permission on
// the file or on one of its static groups that lists them for action.
func (a *AccessService) CanAccessFile(ctx context.Context, user *models.User, file *models.File, action string) bool {
	if file.OwnerID == user.ID {
		return true
	}

	permissionIDs := append([]string{}, file.PermissionIDs...)
	if len(file.StaticFileGroupIDs) > 0 {
		var groups []models.FileGroup
		if err := a.DB.WithContext(ctx).Where("id IN ?", file.StaticFileGroupIDs).Find(&groups).Error; err != nil {
			logger.Error("access_group_lookup_failed", err, map[string]interface{}{"file_id": file.ID.String()})
			return false
		}
		for _, group := range groups {
			permissionIDs = append(permissionIDs, group.PermissionIDs...)
		}
	}
	return a.granted(ctx, user, permissionIDs, action)
}

// CanAccessGroup grants the group owner everything; anyone else needs a
// permission on the group that lists them for action.
func (a *AccessService) CanAccessGroup(ctx context.Context, user *models.User, group *models.FileGroup, action string) bool {
	if group.OwnerID == user.ID {
		return true
	}
	return a.granted(ctx, user, group.PermissionIDs, action)
}

func (a *AccessService) granted(ctx context.Context, user *models.User, permissionIDs []string, action string) bool {
	if len(permissionIDs) == 0 {
		return false
	}

	var permissions []models.Permission
	if err := a.DB.WithContext(ctx).Where("id IN ?", permissionIDs).Find(&permissions).Error; err != nil {
		logger.Error("access_permission_lookup_failed", err, nil)
		return false
	}

	for i := range permissions {
		p := &permissions[i]
		if p.UseType == filez.PermissionUseOnce && p.Used {
			continue
		}
		if !Allows(p.Content.ACL, user, action) {
			continue
		}
		if p.UseType == filez.PermissionUseOnce {
			// Only the request that flips used wins the grant.
			result := a.DB.WithContext(ctx).Model(&models.Permission{}).
				Where("id = ? AND used = ?", p.ID, false).
				Update("used", true)
			if result.Error != nil {
				logger.Error("access_permission_consume_failed", result.Error, map[string]interface{}{"permission_id": p.ID.String()})
				return false
			}
			if result.RowsAffected != 1 {
				continue
			}
		}
		return true
	}
	return false
}

// Allows reports whether acl lists user, directly or through a user group,
// for action. Link and password sharing are not evaluated.
func Allows(acl *filez.ACL, user *models.User, action string) bool {
	if acl == nil || !contains(acl.What, action) {
		return false
	}
	if contains(acl.Who.Users, user.ID.String()) {
		return true
	}
	for _, groupID := range user.UserGroupIDs {
		if contains(acl.Who.UserGroups, groupID) {
			return true
		}
	}
	return false
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
