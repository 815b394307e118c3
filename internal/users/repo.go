package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository reads and writes users and the deleted_users archive. Lookups
// return gorm.ErrRecordNotFound on a miss.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Rebind(tx)}
}

func (r *Repository) Create(ctx context.Context, account NewAccount) (*models.User, error) {
	user := account.model()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects email already normalized to lower case.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.First[models.User](ctx, r.Base, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.First[models.User](ctx, r.Base, "id = ?", id)
}

// LockByID is FindByID holding the row for update; use it inside WithTx.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	locked := repo.NewBase(r.DB(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}))
	return repo.First[models.User](ctx, locked, "id = ?", id)
}

// UpdateLastLogin leaves updated_at alone; a login is not a profile change.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.row(ctx, id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.Updates(ctx, id, map[string]any{"password_hash": hash})
}

// Updates writes the given columns and bumps updated_at. An empty map is a
// no-op.
func (r *Repository) Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	changes := make(map[string]any, len(fields)+1)
	for col, v := range fields {
		changes[col] = v
	}
	changes["updated_at"] = time.Now().UTC()
	return r.row(ctx, id).Updates(changes).Error
}

func (r *Repository) Archive(ctx context.Context, snapshot *models.DeletedUser) error {
	return r.DB(ctx).Create(snapshot).Error
}

// List pages users newest first. cursor is the last row of the previous page.
func (r *Repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.User, error) {
	q := r.DB(ctx).Model(&models.User{})
	if cursor != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.SortAt, cursor.SortAt, cursor.ID)
	}
	var page []models.User
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&page).Error
	return page, err
}

func (r *Repository) row(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id)
}
