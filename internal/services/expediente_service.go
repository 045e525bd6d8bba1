package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
)

// ExpedienteService manages forensic case files.
type ExpedienteService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

// NewExpedienteService constructs the expediente service.
func NewExpedienteService(db *gorm.DB, audit *AuditService) (*ExpedienteService, error) {
	if db == nil {
		return nil, errors.New("expedientes: db is required")
	}
	return &ExpedienteService{db: db, audit: audit, now: time.Now}, nil
}

// CreateExpedienteInput captures the fields accepted at registration.
type CreateExpedienteInput struct {
	Descripcion   string
	Sede          string
	FechaRegistro *time.Time
}

// Create registers a new expediente. The folio is assigned inside the same
// transaction as the insert; it is sequential per registry year.
func (s *ExpedienteService) Create(ctx context.Context, input CreateExpedienteInput, tecnicoID uint) (*models.Expediente, error) {
	descripcion := strings.TrimSpace(input.Descripcion)
	if descripcion == "" {
		return nil, appErrors.NewValidation("descripcion es obligatoria")
	}

	fecha := s.now()
	if input.FechaRegistro != nil {
		fecha = *input.FechaRegistro
	}

	var exp models.Expediente
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		folio, err := nextFolio(tx, fecha.Year())
		if err != nil {
			return err
		}

		exp = models.Expediente{
			Folio:         folio,
			Descripcion:   descripcion,
			Sede:          strings.TrimSpace(input.Sede),
			FechaRegistro: fecha,
			TecnicoID:     tecnicoID,
		}
		return tx.Create(&exp).Error
	})
	if err != nil {
		return nil, fmt.Errorf("expedientes: create: %w", err)
	}

	s.recordAudit(ctx, tecnicoID, "expedientes.create", exp.Folio)
	return &exp, nil
}

// nextFolio computes the next sequential folio for the year, e.g.
// DICRI-2026-00042. The unique index on folio backstops concurrent creates.
func nextFolio(tx *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("DICRI-%d-", year)

	var folios []string
	err := tx.Model(&models.Expediente{}).
		Unscoped().
		Where("folio LIKE ?", prefix+"%").
		Order("folio DESC").
		Limit(1).
		Pluck("folio", &folios).Error
	if err != nil {
		return "", err
	}

	seq := 1
	if len(folios) > 0 {
		var parsed int
		if _, err := fmt.Sscanf(folios[0], prefix+"%d", &parsed); err == nil {
			seq = parsed + 1
		}
	}

	return fmt.Sprintf("%s%05d", prefix, seq), nil
}

// Get loads an expediente with its indicios.
func (s *ExpedienteService) Get(ctx context.Context, id uint) (*models.Expediente, error) {
	var exp models.Expediente
	err := s.db.WithContext(ctx).Preload("Indicios").First(&exp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("expedientes: get: %w", err)
	}
	return &exp, nil
}

// ExpedienteFilter narrows List results.
type ExpedienteFilter struct {
	Folio    string
	Sede     string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// List returns a page of expedientes matching the filter.
func (s *ExpedienteService) List(ctx context.Context, filter ExpedienteFilter) ([]models.Expediente, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	tx := s.db.WithContext(ctx).Model(&models.Expediente{})
	if folio := strings.TrimSpace(filter.Folio); folio != "" {
		tx = tx.Where("folio LIKE ?", "%"+folio+"%")
	}
	if sede := strings.TrimSpace(filter.Sede); sede != "" {
		tx = tx.Where("sede = ?", sede)
	}
	if filter.From != nil {
		tx = tx.Where("fecha_registro >= ?", *filter.From)
	}
	if filter.To != nil {
		tx = tx.Where("fecha_registro <= ?", *filter.To)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("expedientes: count: %w", err)
	}

	var items []models.Expediente
	err := tx.Order("fecha_registro DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("expedientes: list: %w", err)
	}

	return items, total, nil
}

// UpdateExpedienteInput holds mutable fields; nil means unchanged.
type UpdateExpedienteInput struct {
	Descripcion *string
	Sede        *string
}

// Update patches an expediente.
func (s *ExpedienteService) Update(ctx context.Context, id uint, input UpdateExpedienteInput, actorID uint) (*models.Expediente, error) {
	exp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Descripcion != nil {
		descripcion := strings.TrimSpace(*input.Descripcion)
		if descripcion == "" {
			return nil, appErrors.NewValidation("descripcion no puede quedar vacía")
		}
		updates["descripcion"] = descripcion
	}
	if input.Sede != nil {
		updates["sede"] = strings.TrimSpace(*input.Sede)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(exp).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("expedientes: update: %w", err)
		}
	}

	s.recordAudit(ctx, actorID, "expedientes.update", exp.Folio)
	return s.Get(ctx, id)
}

// Delete soft-deletes an expediente.
func (s *ExpedienteService) Delete(ctx context.Context, id uint, actorID uint) error {
	exp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(exp).Error; err != nil {
		return fmt.Errorf("expedientes: delete: %w", err)
	}

	s.recordAudit(ctx, actorID, "expedientes.delete", exp.Folio)
	return nil
}

func (s *ExpedienteService) recordAudit(ctx context.Context, actor uint, action, folio string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, AuditEntry{
		UserID:   &actor,
		Action:   action,
		Resource: folio,
		Result:   "success",
	})
}
