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

	"taskboard/internal/config"
	"taskboard/internal/httpapi"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	checklistRepo := repository.NewChecklistRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	clock := service.SystemClock
	syncSvc := service.NewSyncService(taskRepo, clock)
	taskSvc := service.NewTaskService(taskRepo, userRepo, requestRepo, syncSvc, clock)
	checklistSvc := service.NewChecklistService(checklistRepo, taskSvc)
	authSvc := service.NewAuthService(userRepo, requestRepo, sessionRepo, clock, cfg.SessionTTL)
	maintenanceSvc := service.NewMaintenanceService(taskRepo, sessionRepo, syncSvc, clock)
	reminderSvc := service.NewReminderService(taskRepo, userRepo, clock)

	if err := authSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminPassword); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleWeekly(func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		maintenanceSvc.RunOnce(jobCtx)
	}); err != nil {
		log.Fatalf("schedule maintenance: %v", err)
	}

	if cfg.TelegramToken != "" {
		notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := reminderSvc.Broadcast(jobCtx, notifier.Send); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("digest: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule digest: %v", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	// One maintenance pass at startup; the weekly schedule takes over after.
	go func() {
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		maintenanceSvc.RunOnce(jobCtx)
	}()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(authSvc, taskSvc, checklistSvc).Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("[info] taskboard listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
