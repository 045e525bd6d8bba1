package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/internal/services"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// UserHandler exposes account administration endpoints.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) (*UserHandler, error) {
	if users == nil {
		return nil, errors.New("handlers: user service is required")
	}
	return &UserHandler{users: users}, nil
}

type createUserRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=64"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Password    string   `json:"password" validate:"required,min=8,strongpassword"`
	Roles       []string `json:"roles"`
	MFARequired bool     `json:"mfa_required"`
}

// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		RoleKeys:    req.Roles,
		MFARequired: req.MFARequired,
	}, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, userView(user))
}

// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 20)

	users, total, err := h.users.List(requestContext(c), c.Query("q"), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]gin.H, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, views, &response.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}

// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, userView(user))
}

type updateUserRequest struct {
	Email       *string   `json:"email" validate:"omitempty,email"`
	IsActive    *bool     `json:"is_active"`
	MFARequired *bool     `json:"mfa_required"`
	Roles       *[]string `json:"roles"`
}

// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Update(requestContext(c), id, services.UpdateUserInput{
		Email:       req.Email,
		IsActive:    req.IsActive,
		MFARequired: req.MFARequired,
		RoleKeys:    req.Roles,
	}, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, userView(user))
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,strongpassword"`
}

// PUT /api/v1/users/:id/password
func (h *UserHandler) SetPassword(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req setPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.SetPassword(requestContext(c), id, req.Password, actorID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// DELETE /api/v1/users/:id
func (h *UserHandler) Disable(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.Disable(requestContext(c), id, actorID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func userView(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"is_active":    user.IsActive,
		"mfa_required": user.MFARequired,
		"roles":        user.RoleKeys(),
		"created_at":   user.CreatedAt,
	}
}
