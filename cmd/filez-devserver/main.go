package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/database"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/server"
	"github.com/my-own-web-services/mows-sub001/internal/devserver/storage"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
)

func main() {
	logger.Init()

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg, db)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	server.StartCleanup(ctx, db, 5*time.Minute)
	app := server.New(cfg, db, store)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server_starting", map[string]interface{}{
		"port":            cfg.Server.Port,
		"address":         listenAddr,
		"db_driver":       cfg.DB.Driver,
		"storage_backend": cfg.Storage.Backend,
		"auto_approve":    cfg.Identity.AutoApprove,
		"body_limit_mb":   cfg.Server.BodyLimitMB,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
