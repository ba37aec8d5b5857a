package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alerteye/internal/alert"
	"github.com/alerteye/internal/api"
	"github.com/alerteye/internal/auth"
	"github.com/alerteye/internal/config"
	"github.com/alerteye/internal/database"
	"github.com/alerteye/internal/logger"
	"github.com/alerteye/internal/models"
	"github.com/alerteye/internal/notify"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	zlog, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if err := database.Initialize(cfg.Database.Path); err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	auth.SetSecret(cfg.Auth.JWTSecret)
	ensureDefaultAdmin(zlog)

	manager := alert.NewManager(alert.Config{
		DuplicateWindow:   cfg.DuplicateWindow(),
		CorrelationWindow: cfg.CorrelationWindow(),
		ProcessInterval:   cfg.ProcessInterval(),
		RetentionPeriod:   cfg.RetentionPeriod(),
		HistorySize:       cfg.Manager.HistorySize,
	}, zlog)
	manager.SetArchiveDB(database.GetDB())

	dispatcher := notify.NewDispatcher(notify.Config{
		QueueSize:   cfg.Notify.QueueSize,
		Workers:     cfg.Notify.Workers,
		SendTimeout: cfg.SendTimeout(),
	}, zlog)
	notify.RegisterDefaultHandlers(dispatcher, handlersConfig(cfg), zlog)

	bridge(manager, dispatcher, cfg)

	dispatcher.Start()
	manager.Start()

	server := api.NewServer(manager, dispatcher, zlog)
	go func() {
		if err := server.Run(cfg.Server.Port); err != nil {
			zlog.Fatal("failed to start api server", zap.Error(err))
		}
	}()
	zlog.Info("api server listening", zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	manager.Stop()
	dispatcher.Stop()
}

// bridge forwards rule-driven notify actions into the dispatcher.
// The "all" channel fans out to the configured broadcast set.
func bridge(manager *alert.Manager, dispatcher *notify.Dispatcher, cfg *config.Config) {
	manager.RegisterNotificationFunc(func(a *models.Alert, channel string) {
		priority := priorityForLevel(a.Level)

		channels := []string{channel}
		if channel == "all" {
			channels = cfg.Notify.Broadcast
		}
		for _, ch := range channels {
			dispatcher.SendNotification(
				fmt.Sprintf("[%s] %s", a.Level, a.Title),
				a.Description,
				models.NotificationChannel(ch),
				priority,
				map[string]interface{}{"alert_id": a.ID},
				-1, 0,
			)
		}
	})

	manager.RegisterEscalationFunc(func(a *models.Alert) {
		if a.EscalationLevel < 2 {
			return
		}
		dispatcher.SendWithFallback(
			fmt.Sprintf("Escalated: %s", a.Title),
			a.Description,
			models.ChannelLog,
			models.PriorityUrgent,
			[]models.NotificationChannel{models.ChannelInApp},
			map[string]interface{}{"alert_id": a.ID},
		)
	})
}

func priorityForLevel(level models.AlertLevel) models.NotificationPriority {
	switch level {
	case models.AlertLevelCritical:
		return models.PriorityUrgent
	case models.AlertLevelHigh:
		return models.PriorityHigh
	case models.AlertLevelInfo:
		return models.PriorityLow
	default:
		return models.PriorityNormal
	}
}

func handlersConfig(cfg *config.Config) notify.HandlersConfig {
	hc := notify.HandlersConfig{
		Email: notify.EmailConfig{
			Host:     cfg.Notify.Email.SMTPHost,
			Port:     cfg.Notify.Email.SMTPPort,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			From:     cfg.Notify.Email.From,
			To:       cfg.Notify.Email.To,
		},
		Slack: notify.SlackConfig{
			Token:   cfg.Notify.Slack.Token,
			Channel: cfg.Notify.Slack.Channel,
		},
		Webhook: notify.WebhookConfig{
			URL: cfg.Notify.Webhook.URL,
		},
		Telegram: notify.TelegramConfig{
			BotToken: cfg.Notify.Telegram.BotToken,
			ChatID:   cfg.Notify.Telegram.ChatID,
		},
		RateLimits: make(map[models.NotificationChannel]time.Duration),
	}
	for channel, seconds := range cfg.Notify.RateLimits {
		hc.RateLimits[models.NotificationChannel(channel)] = time.Duration(seconds) * time.Second
	}
	return hc
}

// ensureDefaultAdmin creates the bootstrap admin account on first run.
func ensureDefaultAdmin(zlog *zap.Logger) {
	db := database.GetDB()
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	admin := &models.User{
		Username: "admin",
		Role:     models.RoleAdmin,
		Email:    "admin@localhost",
		IsActive: true,
	}
	password := os.Getenv("ALERTEYE_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		zlog.Warn("using default admin password, set ALERTEYE_ADMIN_PASSWORD")
	}
	if err := admin.SetPassword(password); err != nil {
		zlog.Error("failed to hash admin password", zap.Error(err))
		return
	}
	if err := db.Create(admin).Error; err != nil {
		zlog.Error("failed to create admin user", zap.Error(err))
		return
	}
	zlog.Info("created default admin user")
}
