package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

const defaultPageSize = 50

// Query narrows GetEvents. Empty fields are ignored.
type Query struct {
	EventType entities.AuditEventType
	EntityID  string
	ActorID   string
	Limit     int
	Offset    int
}

// page returns the effective limit and offset.
func (q Query) page() (int, int) {
	limit, offset := q.Limit, q.Offset
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (q Query) apply(tx *gorm.DB) *gorm.DB {
	filters := map[string]string{
		"event_type": string(q.EventType),
		"entity_id":  q.EntityID,
		"actor_id":   q.ActorID,
	}
	for column, value := range filters {
		if value != "" {
			tx = tx.Where(column+" = ?", value)
		}
	}
	return tx
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent stores one event, stamping CreatedAt when unset.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents returns one page of matching events, newest first, and the
// number of matches across all pages.
func (r *Repository) GetEvents(q Query) ([]entities.AuditEvent, int64, error) {
	var total int64
	if err := q.apply(r.db.Model(&entities.AuditEvent{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := q.page()
	var events []entities.AuditEvent
	err := q.apply(r.db.Model(&entities.AuditEvent{})).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, total, err
}

// DeleteOldEvents purges events created before cutoff.
func (r *Repository) DeleteOldEvents(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	return res.RowsAffected, res.Error
}
