package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"daily-tracker/internal/api"
	"daily-tracker/internal/bot"
	"daily-tracker/internal/config"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
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
	entryRepo := repository.NewEntryRepository(db)
	logRepo := repository.NewAdminLogRepository(db)

	userSvc := service.NewUserService(userRepo)
	entrySvc := service.NewEntryService(entryRepo, cfg.Location, cfg.WeekStart)
	adminSvc := service.NewAdminService(userRepo, entryRepo, logRepo)
	scheduler := service.NewSchedulerService(cfg.Location)
	reminderSvc := service.NewReminderService(entrySvc, userRepo, scheduler)

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
		UserRepo:  userRepo,
		Users:     userSvc,
		Entries:   entrySvc,
		Admin:     adminSvc,
		Reminders: reminderSvc,
		Scheduler: scheduler,
	}, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	reminderSvc.SetNotifier(telegramBot.Notify)

	if cfg.ReportInterval > 0 {
		if err := telegramBot.ScheduleReports(cfg.ReportInterval); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
	}
	if err := reminderSvc.Sync(ctx); err != nil {
		log.Fatalf("reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(entrySvc, userSvc, adminSvc, cfg.AllowedOrigins)
	go func() {
		if err := server.Run(ctx, cfg.HTTPAddr); err != nil {
			log.Printf("api stopped with error: %v", err)
			stop()
		}
	}()

	log.Printf("Daily tracker started (timezone %s, week starts %s).", cfg.Location, cfg.WeekStart)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
