// Package server assembles the development server's fiber application.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/handlers"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/middleware"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/session"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/storage"
	"gorm.io/gorm"
)

const accessTokenTTL = time.Hour

func NewIssuer(cfg *config.Config) *session.Issuer {
	return session.NewIssuer(cfg.Session.Secret, accessTokenTTL, cfg.Session.SessionTTL())
}

// New wires middleware and routes around an open database and content store.
func New(cfg *config.Config, db *gorm.DB, store storage.Store) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "filez-devserver",
		BodyLimit: cfg.Server.BodyLimitMB * 1024 * 1024,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:     db,
		Store:  store,
		Issuer: NewIssuer(cfg),
		Config: cfg,
	})
	return app
}

// StartCleanup periodically removes expired device codes until ctx ends.
func StartCleanup(ctx context.Context, db *gorm.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				handlers.CleanupExpiredDeviceCodes(db)
			}
		}
	}()
}
