package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/auth/mfa"
	"github.com/dicri-gt/dicri-backend/internal/models"
	appErrors "github.com/dicri-gt/dicri-backend/pkg/errors"
	"github.com/dicri-gt/dicri-backend/pkg/response"
)

// MFAHandler exposes TOTP enrolment for the authenticated user.
type MFAHandler struct {
	db   *gorm.DB
	totp *mfa.TOTPService
}

func NewMFAHandler(db *gorm.DB, totp *mfa.TOTPService) (*MFAHandler, error) {
	if db == nil || totp == nil {
		return nil, errors.New("handlers: db and totp service are required")
	}
	return &MFAHandler{db: db, totp: totp}, nil
}

// POST /api/v1/auth/mfa/enroll
func (h *MFAHandler) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).First(&user, userID).Error; err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	enrollment, err := h.totp.Enroll(user.ID, user.Username)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"otpauth_url":  enrollment.OTPAuthURL,
		"qr_code":      base64.StdEncoding.EncodeToString(enrollment.QRCodePNG),
		"backup_codes": enrollment.BackupCodes,
	})
}

type mfaVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/v1/auth/mfa/verify
func (h *MFAHandler) Verify(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req mfaVerifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.totp.Activate(userID, req.Code); err != nil {
		if errors.Is(err, mfa.ErrNotEnrolled) {
			response.Error(c, appErrors.NewNotFound("No hay un secreto MFA registrado"))
			return
		}
		response.Error(c, appErrors.ErrMFAInvalid)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"activated": true})
}
