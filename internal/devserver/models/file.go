package models

import (
	"github.com/google/uuid"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
)

type File struct {
	BaseModel
	Name               string                 `gorm:"type:varchar(255);not null;index"`
	OwnerID            uuid.UUID              `gorm:"type:uuid;not null;index"`
	MimeType           string                 `gorm:"type:varchar(255);not null"`
	Size               int64                  `gorm:"not null;default:0"`
	Created            int64                  `gorm:"not null"`
	Modified           *int64                 ``
	Accessed           *int64                 ``
	AccessedCount      int64                  `gorm:"not null;default:0"`
	StaticFileGroupIDs []string               `gorm:"type:text;serializer:json"`
	Keywords           []string               `gorm:"type:text;serializer:json"`
	PermissionIDs      []string               `gorm:"type:text;serializer:json"`
	Readonly           bool                   `gorm:"not null;default:false"`
	SHA256             *string                `gorm:"type:varchar(64)"`
	AppData            map[string]interface{} `gorm:"type:text;serializer:json"`
	StoragePath        string                 `gorm:"type:text;not null"`
}

// ToAPI renders the file; dynamic group membership is computed by the caller.
func (f *File) ToAPI(dynamicGroupIDs []string) filez.File {
	appData := f.AppData
	if appData == nil {
		appData = map[string]interface{}{}
	}
	return filez.File{
		ID:                  f.ID.String(),
		Name:                f.Name,
		OwnerID:             f.OwnerID.String(),
		MimeType:            f.MimeType,
		Size:                f.Size,
		ServerCreated:       f.CreatedAt.Unix(),
		Created:             f.Created,
		Modified:            f.Modified,
		Accessed:            f.Accessed,
		AccessedCount:       f.AccessedCount,
		StaticFileGroupIDs:  nonNil(f.StaticFileGroupIDs),
		DynamicFileGroupIDs: nonNil(dynamicGroupIDs),
		Keywords:            nonNil(f.Keywords),
		PermissionIDs:       nonNil(f.PermissionIDs),
		Readonly:            f.Readonly,
		SHA256:              f.SHA256,
		AppData:             appData,
	}
}

// InStaticGroup reports whether groupID is one of the file's static groups.
func (f *File) InStaticGroup(groupID string) bool {
	for _, id := range f.StaticFileGroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

type FileGroup struct {
	BaseModel
	Name                string              `gorm:"type:varchar(255);not null"`
	OwnerID             uuid.UUID           `gorm:"type:uuid;not null;index"`
	GroupType           filez.FileGroupType `gorm:"type:varchar(20);not null"`
	DynamicGroupRules   *filez.FilterRule   `gorm:"type:text;serializer:json"`
	PermissionIDs       []string            `gorm:"type:text;serializer:json"`
	Keywords            []string            `gorm:"type:text;serializer:json"`
	MimeTypes           []string            `gorm:"type:text;serializer:json"`
	GroupHierarchyPaths []string            `gorm:"type:text;serializer:json"`
	Readonly            bool                `gorm:"not null;default:false"`
}

func (g *FileGroup) ToAPI(itemCount int64) filez.FileGroup {
	return filez.FileGroup{
		ID:                  g.ID.String(),
		Name:                g.Name,
		OwnerID:             g.OwnerID.String(),
		GroupType:           g.GroupType,
		DynamicGroupRules:   g.DynamicGroupRules,
		PermissionIDs:       nonNil(g.PermissionIDs),
		Keywords:            nonNil(g.Keywords),
		MimeTypes:           nonNil(g.MimeTypes),
		GroupHierarchyPaths: nonNil(g.GroupHierarchyPaths),
		ItemCount:           itemCount,
		Readonly:            g.Readonly,
	}
}

type Permission struct {
	BaseModel
	Name    string                  `gorm:"type:varchar(255);not null"`
	OwnerID uuid.UUID               `gorm:"type:uuid;not null;index"`
	UseType filez.PermissionUseType `gorm:"type:varchar(20);not null;default:'Multiple'"`
	Content filez.PermissionContent `gorm:"type:text;serializer:json"`
	Used    bool                    `gorm:"not null;default:false"`
}

func (p *Permission) ToAPI() filez.Permission {
	return filez.Permission{
		ID:      p.ID.String(),
		Name:    p.Name,
		OwnerID: p.OwnerID.String(),
		UseType: p.UseType,
		Content: p.Content,
	}
}

// UploadSpace reserves quota for uploads made on behalf of its owner.
type UploadSpace struct {
	BaseModel
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index"`
	MaxStorage int64     `gorm:"not null;default:0"`
	MaxFiles   int64     `gorm:"not null;default:0"`
}

// Blob holds file content when the database storage backend is selected.
type Blob struct {
	Path string `gorm:"type:varchar(255);primaryKey"`
	Data []byte
}
