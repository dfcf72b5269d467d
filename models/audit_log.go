package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionTransition AuditAction = "TRANSITION"
	AuditActionExport     AuditAction = "EXPORT"
	AuditActionReminder   AuditAction = "REMINDER"
)

// AuditLog represents an immutable record of a data operation
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"createdAt"`

	// Actor identification, denormalized for historical accuracy
	UserID    *string `gorm:"type:uuid;index:idx_audit_user" json:"userId,omitempty"`
	UserName  string  `json:"userName"`
	UserRole  string  `json:"userRole"`
	UserDept  string  `gorm:"index:idx_audit_dept" json:"userDept"`
	UserEmail string  `json:"userEmail,omitempty"`

	// Target entity
	Entity   string `gorm:"not null;index:idx_audit_entity" json:"entity"` // e.g. "Correspondence"
	EntityID string `gorm:"not null;index:idx_audit_entity" json:"entityId"`

	// Operation details; Operation is the workflow action name
	Action    AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Operation string      `gorm:"index" json:"operation"`

	// Snapshots, JSON encoded
	OldValues string `gorm:"type:text" json:"oldValues,omitempty"`
	NewValues string `gorm:"type:text" json:"newValues,omitempty"`

	// Request metadata (optional)
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	for k := range keys {
		o := oldMap[k]
		n := newMap[k]
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeCreate generates UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit logs (immutability)
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of audit logs (immutability)
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
