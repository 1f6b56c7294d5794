package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model the server migrates.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserGroup{},
		&File{},
		&FileGroup{},
		&Permission{},
		&UploadSpace{},
		&DeviceCode{},
		&Blob{},
	}
}
