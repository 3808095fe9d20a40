package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr        string `yaml:"addr"`
		AdminAPIKey string `yaml:"admin_api_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Booking struct {
		RefundCutoffHours int    `yaml:"refund_cutoff_hours"`
		Timezone          string `yaml:"timezone"`
	} `yaml:"booking"`

	Availability struct {
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	} `yaml:"availability"`

	Notifications struct {
		Enabled bool `yaml:"enabled"`
		Email   struct {
			SMTPAddr   string  `yaml:"smtp_addr"`
			From       string  `yaml:"from"`
			Username   string  `yaml:"username"`
			Password   string  `yaml:"password"`
			RatePerSec float64 `yaml:"rate_per_sec"`
			Burst      int     `yaml:"burst"`
		} `yaml:"email"`
		Telegram struct {
			BotToken    string `yaml:"bot_token"`
			StaffChatID int64  `yaml:"staff_chat_id"`
		} `yaml:"telegram"`
		Reminders struct {
			Enabled              bool `yaml:"enabled"`
			LeadTimeHours        int  `yaml:"lead_time_hours"`
			CheckIntervalMinutes int  `yaml:"check_interval_minutes"`
		} `yaml:"reminders"`
	} `yaml:"notifications"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/gymbook.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RefundCutoff returns how long before class start a cancellation still
// earns a session refund.
func (c *Config) RefundCutoff() time.Duration {
	if c.Booking.RefundCutoffHours <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.Booking.RefundCutoffHours) * time.Hour
}

// Location returns the timezone classes are scheduled in.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Booking.Timezone)
}

// ReminderLeadTime returns how long before class start the reminder email
// goes out.
func (c *Config) ReminderLeadTime() time.Duration {
	if c.Notifications.Reminders.LeadTimeHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Notifications.Reminders.LeadTimeHours) * time.Hour
}

// ReminderCheckInterval returns how often the reminder loop scans for due
// reminders.
func (c *Config) ReminderCheckInterval() time.Duration {
	if c.Notifications.Reminders.CheckIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Notifications.Reminders.CheckIntervalMinutes) * time.Minute
}

// AvailabilityTTL returns how long cached availability summaries stay fresh.
func (c *Config) AvailabilityTTL() time.Duration {
	if c.Availability.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Availability.CacheTTLSeconds) * time.Second
}
