package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/internal/services"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// IndicioHandler exposes evidence item endpoints.
type IndicioHandler struct {
	indicios *services.IndicioService
}

func NewIndicioHandler(indicios *services.IndicioService) (*IndicioHandler, error) {
	if indicios == nil {
		return nil, errors.New("handlers: indicio service is required")
	}
	return &IndicioHandler{indicios: indicios}, nil
}

type createIndicioRequest struct {
	Descripcion string  `json:"descripcion" validate:"required,max=2000"`
	Color       string  `json:"color" validate:"max=64"`
	Tamano      string  `json:"tamano" validate:"max=64"`
	PesoGramos  float64 `json:"peso_gramos" validate:"gte=0"`
	Ubicacion   string  `json:"ubicacion" validate:"max=256"`
}

// POST /api/v1/expedientes/:id/indicios
func (h *IndicioHandler) Create(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	expedienteID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req createIndicioRequest
	if !bindAndValidate(c, &req) {
		return
	}

	indicio, err := h.indicios.Create(requestContext(c), expedienteID, services.CreateIndicioInput{
		Descripcion: req.Descripcion,
		Color:       req.Color,
		Tamano:      req.Tamano,
		PesoGramos:  req.PesoGramos,
		Ubicacion:   req.Ubicacion,
	}, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, indicioView(indicio))
}

// GET /api/v1/expedientes/:id/indicios
func (h *IndicioHandler) ListByExpediente(c *gin.Context) {
	expedienteID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	items, err := h.indicios.ListByExpediente(requestContext(c), expedienteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]gin.H, 0, len(items))
	for i := range items {
		views = append(views, indicioView(&items[i]))
	}

	response.Success(c, http.StatusOK, views)
}

type updateIndicioRequest struct {
	Descripcion *string  `json:"descripcion" validate:"omitempty,max=2000"`
	Color       *string  `json:"color" validate:"omitempty,max=64"`
	Tamano      *string  `json:"tamano" validate:"omitempty,max=64"`
	PesoGramos  *float64 `json:"peso_gramos" validate:"omitempty,gte=0"`
	Ubicacion   *string  `json:"ubicacion" validate:"omitempty,max=256"`
}

// PUT /api/v1/indicios/:id
func (h *IndicioHandler) Update(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req updateIndicioRequest
	if !bindAndValidate(c, &req) {
		return
	}

	indicio, err := h.indicios.Update(requestContext(c), id, services.UpdateIndicioInput{
		Descripcion: req.Descripcion,
		Color:       req.Color,
		Tamano:      req.Tamano,
		PesoGramos:  req.PesoGramos,
		Ubicacion:   req.Ubicacion,
	}, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, indicioView(indicio))
}

// DELETE /api/v1/indicios/:id
func (h *IndicioHandler) Delete(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.indicios.Delete(requestContext(c), id, actorID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func indicioView(indicio *models.Indicio) gin.H {
	return gin.H{
		"id":            indicio.ID,
		"expediente_id": indicio.ExpedienteID,
		"descripcion":   indicio.Descripcion,
		"color":         indicio.Color,
		"tamano":        indicio.Tamano,
		"peso_gramos":   indicio.PesoGramos,
		"ubicacion":     indicio.Ubicacion,
		"tecnico_id":    indicio.TecnicoID,
		"created_at":    indicio.CreatedAt,
	}
}
