package models

import (
	"github.com/google/uuid"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
)

type User struct {
	BaseModel
	Subject      string           `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         *string          `gorm:"type:varchar(255)"`
	Email        *string          `gorm:"type:varchar(255);index"`
	Role         filez.UserRole   `gorm:"type:varchar(20);not null;default:'User'"`
	Status       filez.UserStatus `gorm:"type:varchar(20);not null;default:'Active'"`
	MaxStorage   int64            `gorm:"not null;default:0"`
	UsedStorage  int64            `gorm:"not null;default:0"`
	MaxFiles     int64            `gorm:"not null;default:0"`
	UsedFiles    int64            `gorm:"not null;default:0"`
	UserGroupIDs []string         `gorm:"type:text;serializer:json"`
}

func (u *User) ToAPI() filez.User {
	return filez.User{
		ID:     u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
		Limits: &filez.UserLimits{
			MaxStorage:  u.MaxStorage,
			UsedStorage: u.UsedStorage,
			MaxFiles:    u.MaxFiles,
			UsedFiles:   u.UsedFiles,
		},
		UserGroupIDs: nonNil(u.UserGroupIDs),
	}
}

// CanStore reports whether one more file of size bytes fits the user's quota.
func (u *User) CanStore(size int64) bool {
	if u.MaxFiles > 0 && u.UsedFiles+1 > u.MaxFiles {
		return false
	}
	if u.MaxStorage > 0 && u.UsedStorage+size > u.MaxStorage {
		return false
	}
	return true
}

type UserGroup struct {
	BaseModel
	Name          string                    `gorm:"type:varchar(255);not null"`
	OwnerID       uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Visibility    filez.UserGroupVisibility `gorm:"type:varchar(20);not null;default:'Private'"`
	PermissionIDs []string                  `gorm:"type:text;serializer:json"`
}

func (g *UserGroup) ToAPI() filez.UserGroup {
	return filez.UserGroup{
		ID:            g.ID.String(),
		Name:          g.Name,
		OwnerID:       g.OwnerID.String(),
		Visibility:    g.Visibility,
		PermissionIDs: nonNil(g.PermissionIDs),
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
