package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/session"
	"github.com/my-own-web-services/mows-sub001/pkg/filez"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
)

const (
	identityKey    = "identity"
	currentUserKey = "currentUser"
)

// CORS allows browser clients on the configured origins to send the session cookie.
func CORS(allowedOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Filez-App-Id, X-Filez-Metadata",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowCredentials: true,
	})
}

type SessionMiddleware struct {
	DB     *gorm.DB
	Issuer *session.Issuer
}

func NewSessionMiddleware(db *gorm.DB, issuer *session.Issuer) *SessionMiddleware {
	return &SessionMiddleware{DB: db, Issuer: issuer}
}

// RequireSession rejects requests without a valid session cookie and loads
// the registered user for the session subject when there is one.
func (m *SessionMiddleware) RequireSession(c *fiber.Ctx) error {
	cookie := c.Cookies(filez.SessionCookieName)
	if cookie == "" {
		logger.Warn("session_missing_cookie", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing session"})
	}

	claims, err := m.Issuer.ValidateSessionToken(cookie)
	if err != nil {
		logger.Warn("session_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
	}
	identity := claims.Identity()
	c.Locals(identityKey, &identity)

	var user models.User
	err = m.DB.First(&user, "subject = ?", identity.Subject).Error
	switch {
	case err == nil:
		c.Locals(currentUserKey, &user)
		c.Locals(userIDKey, user.ID.String())
	case !errors.Is(err, gorm.ErrRecordNotFound):
		logger.Error("session_user_lookup_failed", err, map[string]interface{}{"subject": identity.Subject})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load user"})
	}
	return c.Next()
}

// RequireUser rejects sessions whose subject has not registered yet.
func RequireUser(c *fiber.Ctx) error {
	user := GetCurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user not registered"})
	}
	if user.Status == filez.UserStatusDisabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "user disabled"})
	}
	return c.Next()
}

func GetIdentity(c *fiber.Ctx) *session.Identity {
	identity, _ := c.Locals(identityKey).(*session.Identity)
	return identity
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserKey).(*models.User)
	return user
}

func SetCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(currentUserKey, user)
	c.Locals(userIDKey, user.ID.String())
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if token == header {
		return ""
	}
	return token
}
