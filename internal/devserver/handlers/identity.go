package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"html"
	"math/big"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/session"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

const (
	deviceCodeLifetime = 15 * time.Minute
	userCodeAlphabet   = "BCDFGHJKLMNPQRSTVWXZ"
	userCodeLength     = 8
	deviceGrantType    = "urn:ietf:params:oauth:grant-type:device_code"
)

// DeviceAuthHandler is the development identity provider. It speaks the
// OAuth 2.0 device authorization grant (RFC 8628) that golang.org/x/oauth2
// clients expect.
type DeviceAuthHandler struct {
	DB     *gorm.DB
	Issuer *session.Issuer
	Config config.IdentityConfig
}

func NewDeviceAuthHandler(db *gorm.DB, issuer *session.Issuer, cfg config.IdentityConfig) *DeviceAuthHandler {
	return &DeviceAuthHandler{DB: db, Issuer: issuer, Config: cfg}
}

// RequestCode implements the device authorization endpoint. With auto
// approval on, the code is approved for the configured developer identity
// right away.
func (h *DeviceAuthHandler) RequestCode(c *fiber.Ctx) error {
	rawDeviceCode, err := generateRandomHex(32)
	if err != nil {
		return oauthError(c, fiber.StatusInternalServerError, "server_error", "failed to generate device code")
	}
	userCode, err := generateUserCode()
	if err != nil {
		return oauthError(c, fiber.StatusInternalServerError, "server_error", "failed to generate user code")
	}

	dc := models.DeviceCode{
		DeviceCodeHash: hashDeviceCode(rawDeviceCode),
		UserCode:       userCode,
		ClientID:       c.FormValue("client_id"),
		ExpiresAt:      time.Now().Add(deviceCodeLifetime),
		Interval:       h.Config.PollInterval,
		Status:         models.DeviceCodePending,
	}
	if h.Config.AutoApprove {
		approve(&dc, h.Config.DevEmail, h.Config.DevName)
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&dc).Error; err != nil {
		return oauthError(c, fiber.StatusInternalServerError, "server_error", "failed to create device code")
	}

	logger.Info("device_code_issued", map[string]interface{}{
		"client_id":     dc.ClientID,
		"auto_approved": h.Config.AutoApprove,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"device_code":               rawDeviceCode,
		"user_code":                 formatUserCode(userCode),
		"verification_uri":          h.Config.VerificationURL,
		"verification_uri_complete": h.Config.VerificationURL + "?code=" + userCode,
		"expires_in":                int(time.Until(dc.ExpiresAt).Seconds()),
		"interval":                  dc.Interval,
	})
}

// PollToken implements the device access token endpoint.
func (h *DeviceAuthHandler) PollToken(c *fiber.Ctx) error {
	if c.FormValue("grant_type") != deviceGrantType {
		return oauthError(c, fiber.StatusBadRequest, "unsupported_grant_type", "expected device_code grant type")
	}
	rawDeviceCode := c.FormValue("device_code")
	if rawDeviceCode == "" {
		return oauthError(c, fiber.StatusBadRequest, "invalid_request", "device_code is required")
	}

	var dc models.DeviceCode
	if err := h.DB.WithContext(c.UserContext()).First(&dc, "device_code_hash = ?", hashDeviceCode(rawDeviceCode)).Error; err != nil {
		return oauthError(c, fiber.StatusBadRequest, "invalid_grant", "unknown device code")
	}

	if time.Now().After(dc.ExpiresAt) {
		h.DB.Model(&dc).Update("status", models.DeviceCodeExpired)
		return oauthError(c, fiber.StatusBadRequest, "expired_token", "the device code has expired")
	}

	switch dc.Status {
	case models.DeviceCodePending:
		return oauthError(c, fiber.StatusBadRequest, "authorization_pending", "the user has not yet approved")
	case models.DeviceCodeDenied:
		return oauthError(c, fiber.StatusBadRequest, "access_denied", "the user denied the request")
	case models.DeviceCodeApproved:
		token, err := h.Issuer.IssueAccessToken(session.Identity{Subject: dc.Subject, Email: dc.Email, Name: dc.Name})
		if err != nil {
			return oauthError(c, fiber.StatusInternalServerError, "server_error", "failed to generate token")
		}
		h.DB.Unscoped().Delete(&dc)

		logger.Info("device_flow_token_issued", map[string]interface{}{
			"subject":   dc.Subject,
			"client_id": dc.ClientID,
		})
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int(h.Issuer.AccessTTL().Seconds()),
		})
	default:
		return oauthError(c, fiber.StatusBadRequest, "invalid_grant", "invalid device code status")
	}
}

const verificationPage = `<!doctype html>
<html><head><title>Filez device login</title></head>
<body>
<h1>Approve device</h1>
<form method="post">
<label>Code <input name="user_code" value="{{code}}"></label><br>
<label>Email <input name="email" type="email" value="{{email}}"></label><br>
<label>Name <input name="name" value="{{name}}"></label><br>
<button name="decision" value="approve">Approve</button>
<button name="decision" value="deny">Deny</button>
</form>
</body></html>`

// VerificationPage renders the form behind verification_uri.
func (h *DeviceAuthHandler) VerificationPage(c *fiber.Ctx) error {
	page := strings.NewReplacer(
		"{{code}}", html.EscapeString(c.Query("code")),
		"{{email}}", html.EscapeString(h.Config.DevEmail),
		"{{name}}", html.EscapeString(h.Config.DevName),
	).Replace(verificationPage)
	c.Type("html")
	return c.Status(fiber.StatusOK).SendString(page)
}

// Decide approves or denies a pending code for the identity entered in the
// verification form.
func (h *DeviceAuthHandler) Decide(c *fiber.Ctx) error {
	code := normalizeUserCode(c.FormValue("user_code"))
	if code == "" {
		return Error(c, fiber.StatusBadRequest, "user_code is required")
	}

	var dc models.DeviceCode
	if err := h.DB.WithContext(c.UserContext()).First(&dc, "user_code = ? AND status = ?", code, models.DeviceCodePending).Error; err != nil {
		return Error(c, fiber.StatusNotFound, "no pending device code found for this code")
	}
	if time.Now().After(dc.ExpiresAt) {
		h.DB.Model(&dc).Update("status", models.DeviceCodeExpired)
		return Error(c, fiber.StatusGone, "this device code has expired")
	}

	if c.FormValue("decision") == "deny" {
		dc.Status = models.DeviceCodeDenied
	} else {
		email := strings.TrimSpace(c.FormValue("email"))
		if email == "" {
			return Error(c, fiber.StatusBadRequest, "email is required")
		}
		approve(&dc, email, strings.TrimSpace(c.FormValue("name")))
	}
	if err := h.DB.WithContext(c.UserContext()).Save(&dc).Error; err != nil {
		return internalError(c, "device_code_update_failed", err, "failed to update device code")
	}

	logger.Info("device_flow_decided", map[string]interface{}{
		"user_code": code,
		"status":    string(dc.Status),
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": dc.Status})
}

// CleanupExpiredDeviceCodes removes device codes that have expired.
func CleanupExpiredDeviceCodes(db *gorm.DB) {
	db.Unscoped().Where("expires_at < NOW()").Delete(&models.DeviceCode{})
}

// approve binds the code to a developer identity; the subject is derived
// from the email so repeated logins map to the same user.
func approve(dc *models.DeviceCode, email, name string) {
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	dc.Status = models.DeviceCodeApproved
	dc.Subject = "dev|" + hex.EncodeToString(sum[:8])
	dc.Email = email
	dc.Name = name
}

func hashDeviceCode(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}

func oauthError(c *fiber.Ctx, status int, errorCode string, description string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":             errorCode,
		"error_description": description,
	})
}

func generateRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateUserCode() (string, error) {
	code := make([]byte, userCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(userCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = userCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func formatUserCode(code string) string {
	if len(code) == userCodeLength {
		return code[:4] + "-" + code[4:]
	}
	return code
}

func normalizeUserCode(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
