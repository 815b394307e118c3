package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// DeletedUser archives an account snapshot at deactivation time.
type DeletedUser struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Email     string         `gorm:"column:email;not null"`
	FirstName string         `gorm:"column:first_name;not null"`
	LastName  string         `gorm:"column:last_name;not null"`
	Phone     *string        `gorm:"column:phone"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null"`
	Reason    *string        `gorm:"column:reason"`
	DeletedBy uuid.UUID      `gorm:"column:deleted_by;type:uuid;not null"`
	DeletedAt time.Time      `gorm:"column:deleted_at;not null"`
}

func (d *DeletedUser) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
