package entities

import "time"

type AuditEventType string

const (
	AuditEventLoan AuditEventType = "loan"
	AuditEventBook AuditEventType = "book"
	AuditEventUser AuditEventType = "user"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   AuditEventType `gorm:"index;size:20" json:"eventType"`
	Action      string         `gorm:"size:50" json:"action"` // e.g. "lend", "return", "delete"
	Description string         `gorm:"size:500" json:"description"`
	EntityID    string         `gorm:"index;size:36" json:"entityId,omitempty"`
	ActorID     *string        `gorm:"index;size:36" json:"actorId,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"errorMsg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
