package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/linen-ops-api/config"
	"github.com/kendall-kelly/linen-ops-api/middleware"
	"github.com/kendall-kelly/linen-ops-api/models"
	"github.com/kendall-kelly/linen-ops-api/routes"
	"github.com/kendall-kelly/linen-ops-api/services"
)

func main() {
	log.Println("Starting Linen Ops API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := config.GetDB()
	if err := config.Migrate(cfg, db, models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	if _, err := services.InitSettingsStore(db, cfg.SettingsFile); err != nil {
		log.Fatalf("Failed to load operator settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Image uploads are optional; the API still serves everything else
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service(ctx)
		if err != nil {
			log.Printf("warning: S3 unavailable, image uploads disabled: %v", err)
		} else {
			services.InitImageService(s3Service)
		}
	} else {
		log.Println("AWS_S3_BUCKET not set, image uploads disabled")
	}

	services.InitNotifier(cfg)
	scheduler := services.NewAlertScheduler(db, services.NewAlertService(db, nil))
	if err := scheduler.Start(cfg.AlertSchedule); err != nil {
		log.Fatalf("Failed to start alert scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := routes.SetupRouter(cfg, middleware.EnsureValidToken(cfg))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
