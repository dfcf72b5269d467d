package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"docflow_app_go/config"
	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// defaultReminderItems caps the cases listed in one reminder.
const defaultReminderItems = 200

// Only supervisors and specialists have pending-state inboxes.
var remindedRoles = []string{org.RoleJefe, org.RoleTecnico}

// Inbox lists cases as seen by an actor (routing.Engine).
type Inbox interface {
	List(ctx context.Context, actor routing.Actor, params routing.ListParams) ([]models.Correspondence, int64, routing.ListFilter, error)
}

// Assignees lists active users by role (services.UserDirectory).
type Assignees interface {
	ListAssignees(ctx context.Context, role, department string) ([]models.User, error)
}

// AuditLogger records job activity (services.AuditService).
type AuditLogger interface {
	LogAuditEvent(ac services.AuditContext, action models.AuditAction, entity, entityID, operation string, oldValues, newValues interface{})
}

// ReminderCounter counts queued reminders (observability.Metrics).
type ReminderCounter interface {
	RecordReminders(n int)
}

// StaleInboxReminder emails supervisors and specialists whose pending cases
// have not moved for StaleDays.
type StaleInboxReminder struct {
	Inbox     Inbox
	Users     Assignees
	Sender    services.EmailSender
	Audit     AuditLogger
	Metrics   ReminderCounter
	AppURL    string
	StaleDays int
	PageSize  int // inbox page size; defaults to routing.MaxPageSize
	MaxItems  int // cases listed per mail; defaults to defaultReminderItems
	Logger    *zap.Logger
	Now       func() time.Time
}

// staleCases pages through the actor's inbox and returns at most limit cases
// plus the total that matched.
func (r *StaleInboxReminder) staleCases(ctx context.Context, actor routing.Actor, params routing.ListParams, limit int) ([]models.Correspondence, int64, error) {
	var items []models.Correspondence
	var total int64
	for page := 1; ; page++ {
		params.Page = strconv.Itoa(page)
		batch, n, _, err := r.Inbox.List(ctx, actor, params)
		if err != nil {
			return nil, 0, err
		}
		total = n
		items = append(items, batch...)
		if len(batch) == 0 || int64(len(items)) >= total || len(items) >= limit {
			break
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, total, nil
}

// Run sends one reminder per user with stale cases and returns how many
// were queued.
func (r *StaleInboxReminder) Run(ctx context.Context) (int, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	pageSize := r.PageSize
	if pageSize <= 0 || pageSize > routing.MaxPageSize {
		pageSize = routing.MaxPageSize
	}
	maxItems := r.MaxItems
	if maxItems <= 0 {
		maxItems = defaultReminderItems
	}
	cutoff := now.AddDate(0, 0, -r.StaleDays)
	// DateTo is an inclusive calendar day, so step back one more day to keep
	// only cases idle for at least StaleDays.
	params := routing.ListParams{
		DateField: routing.SortUpdatedAt,
		DateTo:    cutoff.AddDate(0, 0, -1).Format("2006-01-02"),
		Limit:     strconv.Itoa(pageSize),
		Sort:      routing.SortUpdatedAt,
	}

	logger.Info("stale inbox reminder job started", zap.Int("stale_days", r.StaleDays))
	sent := 0
	seen := make(map[string]bool)
	for _, role := range remindedRoles {
		users, err := r.Users.ListAssignees(ctx, role, "")
		if err != nil {
			return sent, fmt.Errorf("failed to list %s users: %w", role, err)
		}
		for i := range users {
			u := &users[i]
			if seen[u.ID] || u.Email == "" {
				continue
			}
			seen[u.ID] = true

			items, total, err := r.staleCases(ctx, services.ActorFromUser(u), params, maxItems)
			if err != nil {
				logger.Error("failed to list inbox", zap.String("user_id", u.ID), zap.Error(err))
				continue
			}
			if len(items) == 0 {
				continue
			}

			stale := make([]services.StaleInboxItem, 0, len(items))
			regs := make([]string, 0, len(items))
			for _, c := range items {
				stale = append(stale, services.StaleInboxItem{
					RegExpediente: c.RegExpediente,
					Estado:        string(c.Estado),
					DaysIdle:      int(now.Sub(c.UpdatedAt).Hours() / 24),
				})
				regs = append(regs, c.RegExpediente)
			}

			r.Sender.SendAsync(services.BuildStaleInboxEmail(u.Email, services.StaleInboxEmailData{
				RecipientName: u.Label(),
				Items:         stale,
				Total:         int(total),
				InboxURL:      services.InboxURL(r.AppURL),
			}))
			if r.Audit != nil {
				r.Audit.LogAuditEvent(services.AuditContext{
					UserID:    u.ID,
					UserName:  u.Name,
					UserEmail: u.Email,
					UserRole:  role,
					UserDept:  u.Departamento,
				}, models.AuditActionReminder, "User", u.ID, "STALE_INBOX", nil, map[string]interface{}{
					"count":       total,
					"expedientes": regs,
				})
			}
			sent++
		}
	}

	if r.Metrics != nil {
		r.Metrics.RecordReminders(sent)
	}
	logger.Info("stale inbox reminder job completed", zap.Int("sent", sent))
	return sent, nil
}

// NewScheduler creates a cron scheduler in the configured timezone.
func NewScheduler(cfg *config.Config) (*cron.Cron, error) {
	loc := time.UTC
	if cfg.ReminderTimezone != "" {
		l, err := time.LoadLocation(cfg.ReminderTimezone)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", cfg.ReminderTimezone, err)
		}
		loc = l
	}
	return cron.New(cron.WithLocation(loc)), nil
}

// ScheduleReminders registers the reminder job on c. An empty schedule
// leaves the job disabled.
func ScheduleReminders(c *cron.Cron, schedule string, r *StaleInboxReminder) (bool, error) {
	if schedule == "" {
		return false, nil
	}
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.Run(context.Background()); err != nil && r.Logger != nil {
			r.Logger.Error("stale inbox reminder job failed", zap.Error(err))
		}
	})
	if err != nil {
		return false, fmt.Errorf("invalid REMINDER_SCHEDULE %q: %w", schedule, err)
	}
	return true, nil
}
