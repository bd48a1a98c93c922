package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hamed0406/sitemonitor/internal/domain"
)

type Config struct {
	Paths    Paths
	Log      Log
	Store    Store
	Probe    Probe
	Alerting Alerting
	Notify   Notify
	API      API

	Retention       time.Duration `envconfig:"RETENTION" default:"168h"`       // history kept per target
	DashboardWindow time.Duration `envconfig:"DASHBOARD_WINDOW" default:"24h"` // window for uptime/latency views
	Schedule        string        `envconfig:"SCHEDULE"`                       // cron spec; empty runs a single cycle
}

type Paths struct {
	Registry string `envconfig:"REGISTRY_PATH" default:"sites.txt"`
	Data     string `envconfig:"DATA_PATH" default:"monitoring_data.json"`
	Status   string `envconfig:"STATUS_PATH" default:"status.json"`
	Lock     string `envconfig:"LOCK_PATH" default:"monitor.lock"`
}

type Log struct {
	Dir   string `envconfig:"LOG_DIR" default:"logs"`
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type Store struct {
	Driver      string `envconfig:"STORE_DRIVER" default:"file"` // file, sqlite, postgres, memory
	DatabaseURL string `envconfig:"DATABASE_URL"`                // sqlite path or postgres DSN
}

type Probe struct {
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	MaxRedirects   int           `envconfig:"MAX_REDIRECTS" default:"3"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"Site Monitor/1.0"`
	Delay          time.Duration `envconfig:"PROBE_DELAY" default:"500ms"`
	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"1"`
	RetryBackoff   time.Duration `envconfig:"RETRY_BACKOFF" default:"300ms"`
	DNSDiagnose    bool          `envconfig:"DNS_DIAGNOSE" default:"true"`
	MaxConcurrent  int           `envconfig:"MAX_CONCURRENT_CHECKS" default:"1"`
}

type Alerting struct {
	Policy           string `envconfig:"ALERT_POLICY" default:"always"` // always, edge
	NotifyOnComplete bool   `envconfig:"NOTIFY_ON_COMPLETE" default:"false"`
}

type Notify struct {
	TelegramToken  string   `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID string   `envconfig:"TELEGRAM_CHATID"`
	SlackWebhook   string   `envconfig:"SLACK_WEBHOOK"`
	WebhookURL     string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret  string   `envconfig:"WEBHOOK_HMAC_SECRET"`
	SMTPHost       string   `envconfig:"SMTP_HOST"`
	SMTPPort       int      `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser       string   `envconfig:"SMTP_USER"`
	SMTPPassword   string   `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string   `envconfig:"SMTP_FROM"`
	SMTPTo         []string `envconfig:"SMTP_TO"`
	TopicURL       string   `envconfig:"ALERT_TOPIC_URL"` // gocloud pubsub URL, e.g. mem://alerts or nats://alerts
}

type API struct {
	Addr        string `envconfig:"API_ADDR" default:"127.0.0.1:8080"`
	PublicRPM   int    `envconfig:"PUBLIC_RPM" default:"120"`
	PublicBurst int    `envconfig:"PUBLIC_BURST" default:"60"`
}

// Load reads an optional .env file (missing is fine) and then the process environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	cfg.Alerting.Policy = strings.ToLower(strings.TrimSpace(cfg.Alerting.Policy))
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var problems []string
	switch c.Store.Driver {
	case "file", "memory":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for STORE_DRIVER="+c.Store.Driver)
		}
	default:
		problems = append(problems, "unknown STORE_DRIVER "+c.Store.Driver)
	}
	switch strings.ToLower(strings.TrimSpace(c.Alerting.Policy)) {
	case "", "always", "edge":
	default:
		problems = append(problems, "unknown ALERT_POLICY "+c.Alerting.Policy)
	}
	if c.Probe.ConnectTimeout <= 0 || c.Probe.RequestTimeout <= 0 {
		problems = append(problems, "probe timeouts must be positive")
	}
	if c.Probe.MaxRedirects < 0 {
		problems = append(problems, "MAX_REDIRECTS must be >= 0")
	}
	if c.Retention <= 0 || c.DashboardWindow <= 0 {
		problems = append(problems, "RETENTION and DASHBOARD_WINDOW must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (n Notify) TelegramEnabled() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

func (n Notify) MailEnabled() bool {
	return n.SMTPHost != "" && n.SMTPFrom != "" && len(n.SMTPTo) > 0
}
