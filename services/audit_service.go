package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services/routing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	UserID    string
	UserName  string
	UserRole  string
	UserDept  string
	UserEmail string
	IPAddress string
	UserAgent string
}

type auditContextKey struct{}

// ContextWithAudit attaches request metadata for audit entries written later
// in the request.
func ContextWithAudit(ctx context.Context, ac AuditContext) context.Context {
	return context.WithValue(ctx, auditContextKey{}, ac)
}

// AuditContextFrom returns the request metadata stored by ContextWithAudit.
func AuditContextFrom(ctx context.Context) AuditContext {
	if ctx == nil {
		return AuditContext{}
	}
	ac, _ := ctx.Value(auditContextKey{}).(AuditContext)
	return ac
}

// AuditService writes audit_logs rows asynchronously. It implements
// routing.AuditSink.
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewAuditService creates an AuditService
func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{db: db, logger: logger}
}

// LogActivity records one engine action. Failures are logged and dropped.
func (s *AuditService) LogActivity(ctx context.Context, action routing.Action, entity, entityID string, before, after interface{}, actor routing.Actor) {
	req := AuditContextFrom(ctx)
	ac := AuditContext{
		UserID:    actor.ID,
		UserName:  actor.Label(),
		UserRole:  primaryRole(actor.Roles),
		UserDept:  actor.Department,
		UserEmail: actor.Email,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}

	kind := models.AuditActionTransition
	if action == routing.ActionCreate {
		kind = models.AuditActionCreate
	}
	s.LogAuditEvent(ac, kind, entity, entityID, string(action), before, after)
}

// LogAuditEvent creates a new audit log entry asynchronously
func (s *AuditService) LogAuditEvent(
	ac AuditContext,
	action models.AuditAction,
	entity string,
	entityID string,
	operation string,
	oldValues interface{},
	newValues interface{},
) {
	s.wg.Add(1)
	// Run in goroutine to avoid blocking the request
	go func() {
		defer s.wg.Done()

		auditLog := models.AuditLog{
			UserID:    ptrIfNotEmpty(ac.UserID),
			UserName:  ac.UserName,
			UserRole:  ac.UserRole,
			UserDept:  ac.UserDept,
			UserEmail: ac.UserEmail,
			Entity:    entity,
			EntityID:  entityID,
			Action:    action,
			Operation: operation,
			OldValues: marshalSnapshot(oldValues),
			NewValues: marshalSnapshot(newValues),
			IPAddress: ac.IPAddress,
			UserAgent: ac.UserAgent,
		}

		if err := s.db.Create(&auditLog).Error; err != nil {
			s.logger.Error("failed to create audit log",
				zap.String("entity", entity),
				zap.String("entity_id", entityID),
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
	}()
}

// Flush waits for pending writes. Called on shutdown.
func (s *AuditService) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func marshalSnapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func primaryRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}

// GetEntityAuditHistory retrieves the audit history for a specific entity
func GetEntityAuditHistory(db *gorm.DB, entity, entityID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserID      string
	UserDept    string
	Entity      string
	EntityID    string
	Action      string
	Operation   string
	DateFrom    time.Time
	DateTo      time.Time
	SearchQuery string
}

// QueryAuditLogs retrieves one page of audit logs, newest first
func QueryAuditLogs(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := db.Model(&models.AuditLog{})

	// Apply filters
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.UserDept != "" {
		query = query.Where("user_dept = ?", filters.UserDept)
	}
	if filters.Entity != "" {
		query = query.Where("entity = ?", filters.Entity)
	}
	if filters.EntityID != "" {
		query = query.Where("entity_id = ?", filters.EntityID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Operation != "" {
		query = query.Where("operation = ?", filters.Operation)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		pattern := "%" + filters.SearchQuery + "%"
		query = query.Where("user_name LIKE ? OR user_email LIKE ? OR new_values LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}
