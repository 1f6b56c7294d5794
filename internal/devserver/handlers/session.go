package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/middleware"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/session"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
)

type SessionHandler struct {
	Issuer       *session.Issuer
	SecureCookie bool
}

func NewSessionHandler(issuer *session.Issuer, secureCookie bool) *SessionHandler {
	return &SessionHandler{Issuer: issuer, SecureCookie: secureCookie}
}

// Create exchanges a bearer access token for the session cookie.
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	token := middleware.BearerToken(c)
	if token == "" {
		logger.Warn("session_missing_token", map[string]interface{}{"ip": c.IP()})
		return Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	claims, err := h.Issuer.ValidateAccessToken(token)
	if err != nil {
		logger.Warn("session_token_rejected", map[string]interface{}{
			"ip":    c.IP(),
			"error": err.Error(),
		})
		return Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	sessionToken, err := h.Issuer.IssueSessionToken(claims.Identity())
	if err != nil {
		return internalError(c, "session_issue_failed", err, "failed to create session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     filez.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		Expires:  time.Now().Add(h.Issuer.SessionTTL()),
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	logger.Info("session_created", map[string]interface{}{
		"subject": claims.Subject,
		"app_id":  c.Get("X-Filez-App-Id"),
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"subject": claims.Subject})
}
