package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
)

// IndicioService manages evidence items attached to expedientes.
type IndicioService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewIndicioService constructs the indicio service.
func NewIndicioService(db *gorm.DB, audit *AuditService) (*IndicioService, error) {
	if db == nil {
		return nil, errors.New("indicios: db is required")
	}
	return &IndicioService{db: db, audit: audit}, nil
}

// CreateIndicioInput captures the fields accepted at registration.
type CreateIndicioInput struct {
	Descripcion string
	Color       string
	Tamano      string
	PesoGramos  float64
	Ubicacion   string
}

// Create attaches a new indicio to an existing expediente.
func (s *IndicioService) Create(ctx context.Context, expedienteID uint, input CreateIndicioInput, tecnicoID uint) (*models.Indicio, error) {
	descripcion := strings.TrimSpace(input.Descripcion)
	if descripcion == "" {
		return nil, appErrors.NewValidation("descripcion es obligatoria")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Expediente{}).
		Where("id = ?", expedienteID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("indicios: check expediente: %w", err)
	}
	if count == 0 {
		return nil, appErrors.NewNotFound("expediente no encontrado")
	}

	indicio := models.Indicio{
		ExpedienteID: expedienteID,
		Descripcion:  descripcion,
		Color:        strings.TrimSpace(input.Color),
		Tamano:       strings.TrimSpace(input.Tamano),
		PesoGramos:   input.PesoGramos,
		Ubicacion:    strings.TrimSpace(input.Ubicacion),
		TecnicoID:    tecnicoID,
	}
	if err := s.db.WithContext(ctx).Create(&indicio).Error; err != nil {
		return nil, fmt.Errorf("indicios: create: %w", err)
	}

	s.recordAudit(ctx, tecnicoID, "indicios.create", indicio.ID)
	return &indicio, nil
}

// ListByExpediente returns all indicios of an expediente.
func (s *IndicioService) ListByExpediente(ctx context.Context, expedienteID uint) ([]models.Indicio, error) {
	var items []models.Indicio
	err := s.db.WithContext(ctx).
		Where("expediente_id = ?", expedienteID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("indicios: list: %w", err)
	}
	return items, nil
}

// UpdateIndicioInput holds mutable fields; nil means unchanged.
type UpdateIndicioInput struct {
	Descripcion *string
	Color       *string
	Tamano      *string
	PesoGramos  *float64
	Ubicacion   *string
}

// Update patches an indicio.
func (s *IndicioService) Update(ctx context.Context, id uint, input UpdateIndicioInput, actorID uint) (*models.Indicio, error) {
	indicio, err := s.get(ctx, id)
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
	if input.Color != nil {
		updates["color"] = strings.TrimSpace(*input.Color)
	}
	if input.Tamano != nil {
		updates["tamano"] = strings.TrimSpace(*input.Tamano)
	}
	if input.PesoGramos != nil {
		updates["peso_gramos"] = *input.PesoGramos
	}
	if input.Ubicacion != nil {
		updates["ubicacion"] = strings.TrimSpace(*input.Ubicacion)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(indicio).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("indicios: update: %w", err)
		}
	}

	s.recordAudit(ctx, actorID, "indicios.update", id)
	return s.get(ctx, id)
}

// Delete soft-deletes an indicio.
func (s *IndicioService) Delete(ctx context.Context, id uint, actorID uint) error {
	indicio, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(indicio).Error; err != nil {
		return fmt.Errorf("indicios: delete: %w", err)
	}

	s.recordAudit(ctx, actorID, "indicios.delete", id)
	return nil
}

func (s *IndicioService) get(ctx context.Context, id uint) (*models.Indicio, error) {
	var indicio models.Indicio
	err := s.db.WithContext(ctx).First(&indicio, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("indicios: get: %w", err)
	}
	return &indicio, nil
}

func (s *IndicioService) recordAudit(ctx context.Context, actor uint, action string, indicioID uint) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, AuditEntry{
		UserID:   &actor,
		Action:   action,
		Result:   "success",
		Metadata: map[string]any{"indicio_id": indicioID},
	})
}
