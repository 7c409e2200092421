package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"ptmanager_backend/internal/controller"
	"ptmanager_backend/internal/model"
	"ptmanager_backend/internal/router"
	"ptmanager_backend/pkg/config"
	"ptmanager_backend/pkg/cron"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/email"
	"ptmanager_backend/pkg/errtrack"
	"ptmanager_backend/pkg/notification"
	"ptmanager_backend/pkg/realtime"
	"ptmanager_backend/pkg/seed"
	"ptmanager_backend/pkg/utils/cloudflare"
	"ptmanager_backend/pkg/utils/jwt"
	"ptmanager_backend/pkg/utils/storage"
)

func main() {
	cfg := config.Load()

	errtrack.Init(cfg.Sentry.DSN, cfg.Sentry.Environment)
	defer errtrack.Flush()

	jwt.Init(cfg.JWT.Secret, cfg.JWT.TTL)

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	database.InitDB(cfg.Database.URL)
	if err := database.MigrateDatabase(model.All()...); err != nil {
		log.Printf("Migration warning: %v", err)
	}
	if err := seed.SeedPlans(database.GetDB(), cfg.Stripe); err != nil {
		log.Printf("Could not seed plans: %v", err)
	}

	if err := email.InitEmailService(cfg.Email); err != nil {
		log.Fatal("Could not initialize email service:", err)
	}

	mediaDir := ""
	if cfg.R2.Enabled() {
		r2, err := cloudflare.NewR2Storage(cfg.R2)
		if err != nil {
			log.Fatal("Could not initialize R2 storage:", err)
		}
		cloudflare.Default = r2
	} else {
		local, err := storage.NewFileStorage(cfg.Features.LocalMediaDir, cfg.Server.APIBaseURL+"/media")
		if err != nil {
			log.Fatal("Could not initialize local storage:", err)
		}
		cloudflare.Default = local
		mediaDir = cfg.Features.LocalMediaDir
		log.Printf("R2 not configured, storing media in %s", mediaDir)
	}

	notification.Init(realtime.NewHub(realtime.DefaultBuffer))

	controller.AppBaseURL = cfg.Server.AppBaseURL
	controller.FeedSourceTimeout = cfg.Features.FeedSourceTimeout
	controller.ExpiryWindowDays = cfg.Features.ExpiryWindowDays
	controller.InitSubscriptionController(cfg.Stripe)

	if cfg.Features.CronEnabled {
		scheduler := cron.NewScheduler(database.GetDB(), cfg.Features.ExpiryWindowDays)
		if err := scheduler.Start(); err != nil {
			log.Fatal("Could not start cron:", err)
		}
		defer scheduler.Stop()
	}

	app := router.New(router.Options{MediaDir: mediaDir})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
