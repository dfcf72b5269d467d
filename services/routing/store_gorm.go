package routing

import (
	"context"
	"errors"
	"fmt"

	"docflow_app_go/models"

	"gorm.io/gorm"
)

// GormStore keeps cases in the correspondences table and their history in
// correspondence_history.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore. The caller migrates the models.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var gormSortColumns = map[string]string{
	SortCreatedAt:     "created_at",
	SortUpdatedAt:     "updated_at",
	SortRegExpediente: "reg_expediente",
}

func (s *GormStore) Create(ctx context.Context, c *models.Correspondence) error {
	for i := range c.History {
		c.History[i].CorrespondenceID = c.ID
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create correspondence: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Correspondence, error) {
	var c models.Correspondence
	err := s.db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq ASC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load correspondence: %w", err)
	}
	return &c, nil
}

// Update writes the mutable columns with a WHERE on (id, estado, version)
// and inserts the appended history rows in the same transaction.
func (s *GormStore) Update(ctx context.Context, c *models.Correspondence, expectedState models.CorrespondenceState, expectedVersion int, appended []models.CorrespondenceHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Correspondence{}).
			Where("id = ? AND estado = ? AND version = ?", c.ID, expectedState, expectedVersion).
			Updates(map[string]interface{}{
				"instrucciones": c.Instrucciones,
				"destino":       c.Destino,
				"jefe_id":       c.JefeID,
				"jefe_label":    c.JefeLabel,
				"tecnico_id":    c.TecnicoID,
				"tecnico_label": c.TecnicoLabel,
				"estado":        c.Estado,
				"owner_dept":    c.OwnerDept,
				"owner_role":    c.OwnerRole,
				"owner_user_id": c.OwnerUserID,
				"activo":        c.Activo,
				"version":       c.Version,
				"updated_at":    c.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update correspondence: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Correspondence{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check correspondence: %w", err)
			}
			if count == 0 {
				return ErrCaseNotFound
			}
			return ErrStaleWrite
		}

		if len(appended) == 0 {
			return nil
		}
		rows := make([]models.CorrespondenceHistory, len(appended))
		copy(rows, appended)
		for i := range rows {
			rows[i].CorrespondenceID = c.ID
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		return nil
	})
}

func (s *GormStore) List(ctx context.Context, f ListFilter) ([]models.Correspondence, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Correspondence{})

	if len(f.States) > 0 {
		query = query.Where("estado IN ?", f.States)
	}
	if f.OwnerDept != "" {
		query = query.Where("owner_dept = ?", f.OwnerDept)
	}
	if f.OwnerRole != "" {
		query = query.Where("owner_role = ?", f.OwnerRole)
	}
	if f.OwnerUserID != "" {
		query = query.Where("owner_user_id = ?", f.OwnerUserID)
	}
	if f.CreatedBy != "" {
		query = query.Where("created_by = ?", f.CreatedBy)
	}

	dateColumn := "created_at"
	if f.DateField == SortUpdatedAt {
		dateColumn = "updated_at"
	}
	if f.DateFrom != nil {
		query = query.Where(dateColumn+" >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where(dateColumn+" < ?", *f.DateTo)
	}

	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		query = query.Where(
			"reg_expediente LIKE ? OR documento_recibido LIKE ? OR enviado_por LIKE ? OR notas LIKE ? OR instrucciones LIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count correspondence: %w", err)
	}

	column, ok := gormSortColumns[f.Sort]
	if !ok {
		column = "created_at"
	}
	order := column + " ASC"
	if f.Desc {
		order = column + " DESC"
	}

	var items []models.Correspondence
	q := query.Order(order).Offset(f.Offset())
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list correspondence: %w", err)
	}
	return items, total, nil
}
