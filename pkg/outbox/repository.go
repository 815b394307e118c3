package outbox

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository reads and writes outbox_events. Every method takes the
// transaction to run in; the relay holds its row locks until it commits.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return ErrNoTransaction
	}
	return tx.Create(&event).Error
}

// FetchUnpublishedForPublish returns the oldest undelivered rows that still
// have attempts left. Rows locked by another relay are skipped.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var pending []models.OutboxEvent
	err := tx.
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Where("published_at IS NULL AND attempt_count < ?", maxAttempts).
		Order("created_at, id").
		Limit(limit).
		Find(&pending).Error
	return pending, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.touch(tx, id, map[string]any{"published_at": time.Now().UTC()})
}

// MarkFailedTx counts one more failed attempt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.touch(tx, id, map[string]any{
		"last_error":    cause.Error(),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminalTx sets attempt_count to the limit so the row is never fetched
// again.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return r.touch(tx, id, map[string]any{
		"last_error":    cause.Error(),
		"attempt_count": terminalAttempts,
	})
}

func (r *Repository) touch(tx *gorm.DB, id uuid.UUID, changes map[string]any) error {
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(changes).Error
}
