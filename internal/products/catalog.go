package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Catalog resolves order lines against active products so orders are priced
// from the catalog rather than from client input.
type Catalog struct {
	repo *Repository
}

func NewCatalog(repo *Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Resolve looks a line up by product id, else by exact name. A nil product with
// a nil error means the line names nothing in the catalog.
func (c *Catalog) Resolve(ctx context.Context, tx *gorm.DB, productID *uuid.UUID, name string) (*models.Product, error) {
	rows := c.repo.WithTx(tx)

	if productID != nil {
		product, err := rows.FindActiveByID(ctx, *productID)
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product").
				WithDetails(map[string]string{"productId": productID.String()})
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resolve product")
		}
		return product, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	product, err := rows.FindActiveByName(ctx, name)
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "resolve product")
	}
	return product, nil
}
