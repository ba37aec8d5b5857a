package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret string
	}
	Manager struct {
		DuplicateWindowSec   int
		CorrelationWindowSec int
		ProcessIntervalSec   int
		RetentionDays        int
		HistorySize          int
	}
	Notify struct {
		QueueSize      int
		Workers        int
		SendTimeoutSec int
		Broadcast      []string
		Email          struct {
			SMTPHost string
			SMTPPort int
			Username string
			Password string
			From     string
			To       []string
		}
		Slack struct {
			Token   string
			Channel string
		}
		Webhook struct {
			URL string
		}
		Telegram struct {
			BotToken string
			ChatID   string
		}
		RateLimits map[string]int
	}
	Logging struct {
		Level string
	}
}

// LoadConfig loads the configuration from config.yaml, writing a
// default file on first run.
func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	var config Config

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %v\n", err)
		} else {
			if err := os.MkdirAll("data", 0755); err != nil {
				fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			}
			if err := viper.SafeWriteConfig(); err != nil {
				fmt.Printf("Warning: Failed to write default config: %v\n", err)
			}
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Printf("Error unmarshaling config: %v\n", err)
	}

	return &config
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "data/alerteye.db")
	viper.SetDefault("auth.jwtsecret", "change-me")
	viper.SetDefault("manager.duplicatewindowsec", 300)
	viper.SetDefault("manager.correlationwindowsec", 60)
	viper.SetDefault("manager.processintervalsec", 5)
	viper.SetDefault("manager.retentiondays", 7)
	viper.SetDefault("manager.historysize", 1000)
	viper.SetDefault("notify.queuesize", 10000)
	viper.SetDefault("notify.workers", 3)
	viper.SetDefault("notify.sendtimeoutsec", 10)
	viper.SetDefault("notify.broadcast", []string{"log", "in_app"})
	viper.SetDefault("logging.level", "info")
}

func (c *Config) DuplicateWindow() time.Duration {
	return time.Duration(c.Manager.DuplicateWindowSec) * time.Second
}

func (c *Config) CorrelationWindow() time.Duration {
	return time.Duration(c.Manager.CorrelationWindowSec) * time.Second
}

func (c *Config) ProcessInterval() time.Duration {
	return time.Duration(c.Manager.ProcessIntervalSec) * time.Second
}

func (c *Config) RetentionPeriod() time.Duration {
	return time.Duration(c.Manager.RetentionDays) * 24 * time.Hour
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Notify.SendTimeoutSec) * time.Second
}
