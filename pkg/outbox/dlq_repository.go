package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	maxDLQErrorLen   = 1024
	defaultDLQLimit  = 50
	truncationMarker = "..."
)

// DLQQuery narrows a dead-letter listing. Zero fields match everything.
type DLQQuery struct {
	Reason    enums.OutboxDLQErrorReason
	EventType enums.OutboxEventType
	Limit     int
}

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead letter. An event is dead-lettered at most once, so a
// second insert for the same event_id is a no-op.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := clipError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

// List returns matching entries, newest failure first.
func (r *DLQRepository) List(ctx context.Context, q DLQQuery) ([]models.OutboxDLQ, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultDLQLimit
	}
	stmt := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if q.Reason != "" {
		stmt = stmt.Where("error_reason = ?", q.Reason)
	}
	if q.EventType != "" {
		stmt = stmt.Where("event_type = ?", q.EventType)
	}
	var rows []models.OutboxDLQ
	err := stmt.Order("failed_at DESC").Order("id").Limit(limit).Find(&rows).Error
	return rows, err
}

// DeleteFailedBefore drops entries that failed before cutoff.
func (r *DLQRepository) DeleteFailedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	result := tx.Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return result.RowsAffected, result.Error
}

// clipError bounds message to maxDLQErrorLen bytes without splitting a rune.
func clipError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := maxDLQErrorLen - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + truncationMarker
}
