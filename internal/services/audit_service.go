package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
)

// AuditService persists security-relevant events.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs the audit service.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit: db is required")
	}
	return &AuditService{db: db}, nil
}

// AuditEntry describes a single recorded event.
type AuditEntry struct {
	UserID    *uint
	Username  string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// Record writes an audit entry. Metadata is stored as JSON.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	if entry.Action == "" {
		return errors.New("audit: action is required")
	}
	if entry.Result == "" {
		entry.Result = "success"
	}

	metadata := ""
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit: marshal metadata: %w", err)
		}
		metadata = string(encoded)
	}

	log := models.AuditLog{
		UserID:    entry.UserID,
		Username:  entry.Username,
		Action:    entry.Action,
		Resource:  entry.Resource,
		Result:    entry.Result,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		Metadata:  metadata,
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("audit: record entry: %w", err)
	}
	return nil
}

// CleanupOlderThan deletes audit entries older than the retention window and
// returns the number of removed rows.
func (s *AuditService) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("audit: retention days must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}
