package utils

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEventType represents the type of ledger event
type AuditEventType string

const (
	AuditEventCommissionsCreated      AuditEventType = "COMMISSIONS_CREATED"
	AuditEventCommissionStatusChanged AuditEventType = "COMMISSION_STATUS_CHANGED"
	AuditEventPointsDispensed         AuditEventType = "POINTS_DISPENSED"
	AuditEventWithdrawalCreated       AuditEventType = "WITHDRAWAL_CREATED"
	AuditEventBackfillRun             AuditEventType = "BACKFILL_RUN"
)

// AuditEntry is one immutable row of the engine's audit trail. Entries are
// only ever inserted.
type AuditEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EventType AuditEventType `json:"event_type"`
	OrderID   *uuid.UUID     `gorm:"type:uuid;index" json:"order_id"`
	Trigger   string         `gorm:"type:varchar(100)" json:"trigger"`
	Details   string         `gorm:"type:text" json:"details"` // JSON string of correlation metadata
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeCreate assigns the entry id
func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AuditLogger persists ledger audit entries
type AuditLogger struct {
	db *gorm.DB
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// LogEvent records one audit entry. Audit failures are logged but never fail
// the operation being audited.
func (a *AuditLogger) LogEvent(ctx context.Context, eventType AuditEventType, orderID *uuid.UUID, trigger string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("Failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	entry := AuditEntry{
		EventType: eventType,
		OrderID:   orderID,
		Trigger:   trigger,
		Details:   string(detailsJSON),
	}

	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("Failed to write audit entry %s: %v", eventType, err)
	}
}

// CommissionEvent records a commission ledger event. Satisfies the ledger's
// Auditor interface.
func (a *AuditLogger) CommissionEvent(ctx context.Context, event string, orderID uuid.UUID, trigger string, details map[string]interface{}) {
	var oid *uuid.UUID
	if orderID != uuid.Nil {
		oid = &orderID
	}
	a.LogEvent(ctx, AuditEventType(event), oid, trigger, details)
}
