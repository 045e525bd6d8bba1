package mfa

import (
	cryptoRand "crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/dicri-gt/dicri-backend/internal/models"
	"github.com/dicri-gt/dicri-backend/pkg/crypto"
)

const (
	defaultIssuer          = "DICRI"
	defaultBackupCodeCount = 8
	defaultQRCodeSize      = 256
)

// ErrNotEnrolled signals that the user has no MFA secret on record.
var ErrNotEnrolled = errors.New("mfa: user is not enrolled")

// Option allows customising the TOTP service.
type Option func(*TOTPService)

// WithIssuer overrides the default issuer string encoded in provisioning URIs.
func WithIssuer(issuer string) Option {
	return func(s *TOTPService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
	}
}

// WithBackupCodeCount overrides the number of backup codes generated for users.
func WithBackupCodeCount(count int) Option {
	return func(s *TOTPService) {
		if count > 0 {
			s.backupCodes = count
		}
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(s *TOTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Enrollment is returned to the client after provisioning a new secret.
type Enrollment struct {
	OTPAuthURL  string   `json:"otpauth_url"`
	QRCodePNG   []byte   `json:"qr_code_png"`
	BackupCodes []string `json:"backup_codes"`
}

// TOTPService manages user MFA secrets, backup codes, and QR provisioning.
// Secrets are AES-GCM encrypted at rest; backup codes are stored bcrypt-hashed.
type TOTPService struct {
	db            *gorm.DB
	encryptionKey []byte

	issuer      string
	backupCodes int
	qrCodeSize  int
	now         func() time.Time
}

// NewTOTPService constructs a TOTP service backed by the provided database.
func NewTOTPService(db *gorm.DB, encryptionKey []byte, opts ...Option) (*TOTPService, error) {
	if db == nil {
		return nil, errors.New("totp: db is required")
	}
	if length := len(encryptionKey); length != 16 && length != 24 && length != 32 {
		return nil, fmt.Errorf("totp: encryption key must be 16, 24 or 32 bytes, got %d", length)
	}

	service := &TOTPService{
		db:            db,
		encryptionKey: encryptionKey,
		issuer:        defaultIssuer,
		backupCodes:   defaultBackupCodeCount,
		qrCodeSize:    defaultQRCodeSize,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Enroll provisions a new, not yet activated secret for the user and returns
// the provisioning URL, its QR rendering and the plaintext backup codes. Any
// previous secret is replaced.
func (s *TOTPService) Enroll(userID uint, username string) (*Enrollment, error) {
	username = strings.TrimSpace(username)
	if userID == 0 || username == "" {
		return nil, errors.New("totp: user id and username are required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: username,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate key: %w", err)
	}

	backupCodes := make([]string, s.backupCodes)
	hashedCodes := make([]string, s.backupCodes)
	for i := range backupCodes {
		code, err := generateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("totp: generate backup code: %w", err)
		}
		backupCodes[i] = code

		hash, err := crypto.HashPassword(code)
		if err != nil {
			return nil, fmt.Errorf("totp: hash backup code: %w", err)
		}
		hashedCodes[i] = hash
	}

	encryptedSecret, err := crypto.Encrypt([]byte(key.Secret()), s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("totp: encrypt secret: %w", err)
	}

	codesJSON, err := json.Marshal(hashedCodes)
	if err != nil {
		return nil, fmt.Errorf("totp: marshal backup codes: %w", err)
	}

	var secret models.MFASecret
	err = s.db.Where("user_id = ?", userID).First(&secret).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		secret = models.MFASecret{
			UserID:      userID,
			Secret:      encryptedSecret,
			BackupCodes: string(codesJSON),
		}
		if err := s.db.Create(&secret).Error; err != nil {
			return nil, fmt.Errorf("totp: create mfa secret: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("totp: load mfa secret: %w", err)
	default:
		secret.Secret = encryptedSecret
		secret.BackupCodes = string(codesJSON)
		secret.Activated = false
		secret.LastUsedAt = nil
		if err := s.db.Save(&secret).Error; err != nil {
			return nil, fmt.Errorf("totp: update mfa secret: %w", err)
		}
	}

	png, err := qrcode.Encode(key.String(), qrcode.Medium, s.qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("totp: render qr code: %w", err)
	}

	return &Enrollment{
		OTPAuthURL:  key.String(),
		QRCodePNG:   png,
		BackupCodes: backupCodes,
	}, nil
}

// Activate validates the first code against a freshly enrolled secret and
// marks the enrolment as active.
func (s *TOTPService) Activate(userID uint, code string) error {
	secret, err := s.loadSecret(userID)
	if err != nil {
		return err
	}

	valid, err := s.validateTOTP(secret, code)
	if err != nil {
		return err
	}
	if !valid {
		return errors.New("totp: invalid code")
	}

	now := s.now()
	return s.db.Model(secret).Updates(map[string]any{
		"activated":    true,
		"last_used_at": &now,
	}).Error
}

// Enrolled reports whether the user has an activated MFA secret.
func (s *TOTPService) Enrolled(userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.MFASecret{}).
		Where("user_id = ? AND activated = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("totp: query enrolment: %w", err)
	}
	return count > 0, nil
}

// VerifyCode checks a submitted TOTP code, falling back to consuming a backup
// code when the TOTP value does not match.
func (s *TOTPService) VerifyCode(userID uint, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}

	secret, err := s.loadSecret(userID)
	if err != nil {
		return false, err
	}

	valid, err := s.validateTOTP(secret, code)
	if err != nil {
		return false, err
	}
	if valid {
		now := s.now()
		if err := s.db.Model(secret).Update("last_used_at", &now).Error; err != nil {
			return false, fmt.Errorf("totp: update last used: %w", err)
		}
		return true, nil
	}

	return s.consumeBackupCode(secret, code)
}

func (s *TOTPService) validateTOTP(secret *models.MFASecret, code string) (bool, error) {
	rawSecret, err := crypto.Decrypt(secret.Secret, s.encryptionKey)
	if err != nil {
		return false, fmt.Errorf("totp: decrypt secret: %w", err)
	}
	return totp.Validate(strings.TrimSpace(code), string(rawSecret)), nil
}

func (s *TOTPService) consumeBackupCode(secret *models.MFASecret, code string) (bool, error) {
	var hashedCodes []string
	if err := json.Unmarshal([]byte(secret.BackupCodes), &hashedCodes); err != nil {
		return false, fmt.Errorf("totp: unmarshal backup codes: %w", err)
	}

	consumed := false
	for i, stored := range hashedCodes {
		if crypto.VerifyPassword(stored, code) {
			hashedCodes = append(hashedCodes[:i], hashedCodes[i+1:]...)
			consumed = true
			break
		}
	}

	if !consumed {
		return false, nil
	}

	encoded, err := json.Marshal(hashedCodes)
	if err != nil {
		return false, fmt.Errorf("totp: marshal backup codes: %w", err)
	}

	if err := s.db.Model(secret).Update("backup_codes", string(encoded)).Error; err != nil {
		return false, fmt.Errorf("totp: update backup codes: %w", err)
	}

	return true, nil
}

// ProvisioningKey parses an otpauth URL back into a key, used by tests.
func ProvisioningKey(url string) (*otp.Key, error) {
	return otp.NewKeyFromURL(url)
}

func (s *TOTPService) loadSecret(userID uint) (*models.MFASecret, error) {
	if userID == 0 {
		return nil, errors.New("totp: user id is required")
	}

	var secret models.MFASecret
	if err := s.db.Where("user_id = ?", userID).First(&secret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("totp: load secret: %w", err)
	}

	return &secret, nil
}

func generateBackupCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := cryptoRand.Read(buf); err != nil {
		return "", err
	}

	return base32.StdEncoding.EncodeToString(buf)[:8], nil
}
