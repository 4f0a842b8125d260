package db_models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is the id and unix-second timestamps shared by stored rows.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt int64          `gorm:"not null"`
	UpdatedAt int64          `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// UnixNow is the timestamp format stored in CreatedAt and UpdatedAt.
func UnixNow() int64 {
	return time.Now().Unix()
}

func (b *BaseModel) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt == 0 {
		b.CreatedAt = UnixNow()
	}
	b.UpdatedAt = b.CreatedAt
	return nil
}

// map updates (jsonb merges) skip this hook and set updated_at themselves
func (b *BaseModel) BeforeUpdate(*gorm.DB) error {
	b.UpdatedAt = UnixNow()
	return nil
}
