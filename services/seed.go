package services

import (
	"errors"
	"os"

	"docflow_app_go/models"
	"docflow_app_go/services/org"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedAdminFromEnv creates the first administrator from ADMIN_EMAIL,
// ADMIN_PASSWORD and ADMIN_NAME. It does nothing when the variables are
// unset or an administrator already exists.
func SeedAdminFromEnv(db *gorm.DB, catalog *org.Catalog, logger *zap.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" || password == "" {
		return nil
	}
	if name == "" {
		name = "Administrador"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var count int64
	if err := db.Model(&models.User{}).Where("roles LIKE ?", `%"`+org.RoleAdmin+`"%`).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("admin user already exists, skipping seed")
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		logger.Warn("user with admin email already exists, skipping seed", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := ValidatePassword(password); err != nil {
		return err
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Password:     hashed,
		Departamento: catalog.Direction(),
		Roles:        []string{org.RoleAdmin},
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		return err
	}

	logger.Info("created admin user", zap.String("email", email))
	return nil
}
