package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one pending line in a user's cart, unique per product name.
type CartItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:cart_user_product_key,priority:1"`
	ProductName  string          `gorm:"column:product_name;not null;uniqueIndex:cart_user_product_key,priority:2"`
	ProductImage *string         `gorm:"column:product_image"`
	Quantity     int             `gorm:"column:quantity;not null"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	AddedAt      time.Time       `gorm:"column:added_at;autoCreateTime"`
}

func (CartItem) TableName() string {
	return "cart"
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
