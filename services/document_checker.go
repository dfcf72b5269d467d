package services

import (
	"context"
	"fmt"

	"docflow_app_go/services/routing"

	"go.uber.org/zap"
)

// DocumentChecker validates document references on intake. Every URL must
// pass routing.CheckDocumentURL; URLs that point inside the configured
// storage must also name an existing object.
type DocumentChecker struct {
	storage StorageProvider
	logger  *zap.Logger
}

// NewDocumentChecker creates a DocumentChecker. storage may be nil, in which
// case only the syntactic check runs.
func NewDocumentChecker(storage StorageProvider, logger *zap.Logger) *DocumentChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentChecker{storage: storage, logger: logger}
}

// ValidateDocumentURL implements routing.DocumentValidator.
func (d *DocumentChecker) ValidateDocumentURL(ctx context.Context, raw string) error {
	if err := routing.CheckDocumentURL(raw); err != nil {
		return err
	}
	if d.storage == nil || !d.storage.IsConfigured() {
		return nil
	}
	key, ok := d.storage.KeyFromURL(raw)
	if !ok {
		return nil
	}

	exists, err := d.storage.Exists(ctx, key)
	if err != nil {
		d.logger.Error("document existence check failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to check document %s: %w", key, err)
	}
	if !exists {
		return &routing.Error{Code: routing.CodeValidation, Message: "documentoUrl does not exist in storage"}
	}
	return nil
}
