package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default portal endpoints
const (
	DefaultV2LoginURL    = "https://v2.ipps.co.th/agents/login"
	DefaultVASLoginURL   = "https://va-vasbo.ipps.co.th/vas-web/auth/login"
	DefaultVASReportURL  = "https://va-vasbo.ipps.co.th/vas-web/report/amc_all_report/"
	DefaultCIMBLoginURL  = "https://www.bizchannel.cimbthai.com/corp/common2/login.do?action=loginRequest"
	DefaultCIMBAccountNo = "7013252356"
)

// Email transports
const (
	TransportSendGrid = "sendgrid"
	TransportSMTP     = "smtp"
)

// Portal holds credentials for one web portal
type Portal struct {
	LoginURL  string `validate:"required,url"`
	ReportURL string `validate:"omitempty,url"`
	CompanyID string
	Username  string
	Password  string
	Account   string
}

// Email holds email dispatch settings
type Email struct {
	Transport    string   `validate:"oneof=sendgrid smtp"`
	APIKey       string   `yaml:"-"`
	From         string   `validate:"omitempty,email"`
	To           []string `validate:"dive,email"`
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string `yaml:"-"`
}

// Schedule holds the daily run settings
type Schedule struct {
	Timezone     string        `yaml:"timezone" validate:"required"`
	RunAt        string        `yaml:"run_at" validate:"required"`
	RetryUntil   string        `yaml:"retry_until" validate:"required"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"min=1s"`
	RunTimeout   time.Duration `yaml:"run_timeout" validate:"min=1m"`

	Location *time.Location `yaml:"-"`
}

// Config holds application configuration
type Config struct {
	LogLevel      string
	LogDir        string `validate:"required"`
	DownloadsDir  string `validate:"required"`
	ScreenshotDir string
	ChromePath    string
	Headless      bool

	V2       Portal
	VAS      Portal
	CIMB     Portal
	Email    Email
	Schedule Schedule
}

// NewConfig loads configuration from .env, an optional YAML schedule file and
// environment variables, in increasing order of precedence
func NewConfig() (*Config, error) {
	// .env is optional, real environment variables always win
	_ = godotenv.Load()

	schedule := Schedule{
		Timezone:     "Asia/Bangkok",
		RunAt:        "02:01",
		RetryUntil:   "09:01",
		PollInterval: 15 * time.Second,
		RunTimeout:   20 * time.Minute,
	}
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := loadScheduleFile(path, &schedule); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogDir:        getEnv("LOG_DIR", "logs"),
		DownloadsDir:  getEnv("DOWNLOADS_DIR", "downloads"),
		ScreenshotDir: getEnv("SCREENSHOT_DIR", ""),
		ChromePath:    getEnv("CHROME_PATH", ""),
		Headless:      getEnvBool("HEADLESS", true),
		V2: Portal{
			LoginURL: getEnv("V2_LOGIN_URL", DefaultV2LoginURL),
			Username: getEnv("V2_USERNAME", ""),
			Password: getEnv("V2_PASSWORD", ""),
		},
		VAS: Portal{
			LoginURL:  getEnv("VAS_LOGIN_URL", DefaultVASLoginURL),
			ReportURL: getEnv("VAS_REPORT_URL", DefaultVASReportURL),
			Username:  getEnv("VAS_USERNAME", ""),
			Password:  getEnv("VAS_PASSWORD", ""),
		},
		CIMB: Portal{
			LoginURL:  getEnv("CIMB_LOGIN_URL", DefaultCIMBLoginURL),
			CompanyID: getEnv("CIMB_COMPANY_ID", ""),
			Username:  getEnv("CIMB_USERNAME", ""),
			Password:  getEnv("CIMB_PASSWORD", ""),
			Account:   getEnv("CIMB_ACCOUNT_NUMBER", DefaultCIMBAccountNo),
		},
		Email: Email{
			Transport:    strings.ToLower(getEnv("EMAIL_TRANSPORT", TransportSendGrid)),
			APIKey:       strings.Trim(getEnv("SENDGRID_API_KEY", ""), `"`),
			From:         getEnv("SENDGRID_FROM_EMAIL", ""),
			To:           splitList(getEnv("SENDGRID_TO_EMAIL", "")),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		},
		Schedule: Schedule{
			Timezone:     getEnv("TIMEZONE", schedule.Timezone),
			RunAt:        getEnv("RUN_AT", schedule.RunAt),
			RetryUntil:   getEnv("RETRY_UNTIL", schedule.RetryUntil),
			PollInterval: getEnvDuration("POLL_INTERVAL", schedule.PollInterval),
			RunTimeout:   getEnvDuration("RUN_TIMEOUT", schedule.RunTimeout),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and resolves the schedule timezone
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Schedule.Timezone, err)
	}
	c.Schedule.Location = loc

	runAt, err := ParseClock(c.Schedule.RunAt)
	if err != nil {
		return fmt.Errorf("invalid RUN_AT: %w", err)
	}
	retryUntil, err := ParseClock(c.Schedule.RetryUntil)
	if err != nil {
		return fmt.Errorf("invalid RETRY_UNTIL: %w", err)
	}
	if retryUntil <= runAt {
		return fmt.Errorf("RETRY_UNTIL %s must be after RUN_AT %s", c.Schedule.RetryUntil, c.Schedule.RunAt)
	}
	if c.Email.Transport == TransportSMTP && c.Email.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when EMAIL_TRANSPORT=smtp")
	}
	return nil
}

// Secrets lists every configured secret value, for log redaction
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{c.V2.Password, c.VAS.Password, c.CIMB.Password, c.Email.APIKey, c.Email.SMTPPassword} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseClock parses "HH:MM" into minutes after midnight
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func loadScheduleFile(path string, s *Schedule) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var file struct {
		Schedule Schedule `yaml:"schedule"`
	}
	file.Schedule = *s
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	*s = file.Schedule
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
