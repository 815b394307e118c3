package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository manages persistent cart lines. Every predicate is scoped to the
// owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	LockForUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	LockByName(ctx context.Context, userID uuid.UUID, productName string) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	AddQuantity(ctx context.Context, itemID uuid.UUID, delta int) error
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (int64, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) (int64, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Order("id DESC").
		Find(&items).Error
	return items, err
}

// LockForUser reads the cart with row locks held until the transaction ends.
func (r *repository) LockForUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) LockByName(ctx context.Context, userID uuid.UUID, productName string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND product_name = ?", userID, productName).
		Take(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) AddQuantity(ctx context.Context, itemID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

func (r *repository) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, userID, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
