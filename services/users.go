package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"gorm.io/gorm"
)

// UserDirectory reads users from the users table and canonicalizes their
// department and roles against the catalog. It implements
// routing.UserDirectory.
type UserDirectory struct {
	db      *gorm.DB
	catalog *org.Catalog
}

// NewUserDirectory creates a UserDirectory
func NewUserDirectory(db *gorm.DB, catalog *org.Catalog) *UserDirectory {
	return &UserDirectory{db: db, catalog: catalog}
}

// FindByID returns the user with id, or nil when there is none.
func (d *UserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	return d.findOne(ctx, "id = ?", id)
}

// FindByEmail returns the user with email (case-insensitive), or nil.
func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findOne(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (d *UserDirectory) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	d.canonicalize(&user)
	return &user, nil
}

// ListAssignees returns active users holding role, optionally limited to one
// department. Used by the assignment pickers.
func (d *UserDirectory) ListAssignees(ctx context.Context, role, department string) ([]models.User, error) {
	var users []models.User
	if err := d.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	// Stored values may predate the catalog spelling, so filtering happens
	// after canonicalization.
	out := make([]models.User, 0, len(users))
	for i := range users {
		u := users[i]
		d.canonicalize(&u)
		if role != "" && !u.HasRole(role) {
			continue
		}
		if department != "" && u.Departamento != department {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (d *UserDirectory) canonicalize(u *models.User) {
	if dept, ok := d.catalog.CanonicalDepartment(u.Departamento); ok {
		u.Departamento = dept
	}
	u.Roles = d.catalog.CanonicalRoles(u.Roles)
}

// TouchLogin records a successful login.
func (d *UserDirectory) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error; err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (d *UserDirectory) UpdatePassword(ctx context.Context, id, hash string) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update password: user %s not found", id)
	}
	return nil
}

// ActorFromUser builds the principal for a (canonicalized) user.
func ActorFromUser(u *models.User) routing.Actor {
	return routing.Actor{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Roles:      u.Roles,
		Department: u.Departamento,
	}
}
