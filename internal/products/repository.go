package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists catalog rows.
type Repository struct {
	repo.Base
}

// listQuery narrows a catalog listing.
type listQuery struct {
	Search          string
	Category        string
	IncludeInactive bool
	Limit           int
	Offset          int
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Rebind(tx)}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.First[models.Product](ctx, r.Base, "id = ?", id)
}

func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.First[models.Product](ctx, r.Base, "id = ? AND is_active = ?", id, true)
}

func (r *Repository) FindActiveByName(ctx context.Context, name string) (*models.Product, error) {
	return repo.First[models.Product](ctx, r.Base, "name = ? AND is_active = ?", name, true)
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Save(product).Error
}

// SetActive flips is_active and reports how many rows matched.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", active)
	return res.RowsAffected, res.Error
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Product, int64, error) {
	scope := r.DB(ctx).Model(&models.Product{})
	if !q.IncludeInactive {
		scope = scope.Where("is_active = ?", true)
	}
	if q.Category != "" {
		scope = scope.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		scope = scope.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}

	scope = scope.Session(&gorm.Session{})

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := scope.
		Order("name ASC").
		Order("id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
