package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/internal/services"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// ExpedienteHandler exposes case file endpoints.
type ExpedienteHandler struct {
	expedientes *services.ExpedienteService
}

func NewExpedienteHandler(expedientes *services.ExpedienteService) (*ExpedienteHandler, error) {
	if expedientes == nil {
		return nil, errors.New("handlers: expediente service is required")
	}
	return &ExpedienteHandler{expedientes: expedientes}, nil
}

type createExpedienteRequest struct {
	Descripcion   string `json:"descripcion" validate:"required,max=2000"`
	Sede          string `json:"sede" validate:"max=128"`
	FechaRegistro string `json:"fecha_registro"`
}

// POST /api/v1/expedientes
func (h *ExpedienteHandler) Create(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createExpedienteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.CreateExpedienteInput{
		Descripcion: req.Descripcion,
		Sede:        req.Sede,
	}
	if req.FechaRegistro != "" {
		fecha, err := time.Parse(time.RFC3339, req.FechaRegistro)
		if err != nil {
			response.Error(c, appErrors.NewValidation("fecha_registro debe tener formato RFC 3339"))
			return
		}
		input.FechaRegistro = &fecha
	}

	exp, err := h.expedientes.Create(requestContext(c), input, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, expedienteView(exp))
}

// GET /api/v1/expedientes
func (h *ExpedienteHandler) List(c *gin.Context) {
	filter := services.ExpedienteFilter{
		Folio:    c.Query("folio"),
		Sede:     c.Query("sede"),
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "per_page", 20),
	}

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			response.Error(c, appErrors.NewValidation("from debe tener formato RFC 3339"))
			return
		}
		filter.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			response.Error(c, appErrors.NewValidation("to debe tener formato RFC 3339"))
			return
		}
		filter.To = &parsed
	}

	items, total, err := h.expedientes.List(requestContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]gin.H, 0, len(items))
	for i := range items {
		views = append(views, expedienteView(&items[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, views, &response.Meta{
		Page:    filter.Page,
		PerPage: filter.PageSize,
		Total:   total,
	})
}

// GET /api/v1/expedientes/:id
func (h *ExpedienteHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	exp, err := h.expedientes.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	view := expedienteView(exp)
	indicios := make([]gin.H, 0, len(exp.Indicios))
	for i := range exp.Indicios {
		indicios = append(indicios, indicioView(&exp.Indicios[i]))
	}
	view["indicios"] = indicios

	response.Success(c, http.StatusOK, view)
}

type updateExpedienteRequest struct {
	Descripcion *string `json:"descripcion" validate:"omitempty,max=2000"`
	Sede        *string `json:"sede" validate:"omitempty,max=128"`
}

// PUT /api/v1/expedientes/:id
func (h *ExpedienteHandler) Update(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req updateExpedienteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	exp, err := h.expedientes.Update(requestContext(c), id, services.UpdateExpedienteInput{
		Descripcion: req.Descripcion,
		Sede:        req.Sede,
	}, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, expedienteView(exp))
}

// DELETE /api/v1/expedientes/:id
func (h *ExpedienteHandler) Delete(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.expedientes.Delete(requestContext(c), id, actorID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func expedienteView(exp *models.Expediente) gin.H {
	return gin.H{
		"id":             exp.ID,
		"folio":          exp.Folio,
		"descripcion":    exp.Descripcion,
		"sede":           exp.Sede,
		"estado":         exp.Estado,
		"fecha_registro": exp.FechaRegistro,
		"tecnico_id":     exp.TecnicoID,
		"created_at":     exp.CreatedAt,
	}
}
