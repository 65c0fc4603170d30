package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "classwatch/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Remote  RemoteConfig  `yaml:"remote"`
	Report  ReportConfig  `yaml:"report"`
	Mail    MailConfig    `yaml:"mail"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourceConfig locates the class feed.
type SourceConfig struct {
	CSVURL      string        `yaml:"csv_url" envconfig:"CSV_URL" validate:"required"`
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`
}

// RemoteConfig locates the optional key/value table holding run parameters.
type RemoteConfig struct {
	ConfigURL    string `yaml:"config_url" envconfig:"CONFIG_URL"`
	SheetID      string `yaml:"sheet_id" envconfig:"CONFIG_SHEET_ID"`
	SheetRange   string `yaml:"sheet_range" envconfig:"CONFIG_SHEET_RANGE"`
	SheetsAPIKey string `yaml:"sheets_api_key" envconfig:"CONFIG_SHEETS_API_KEY"`
}

// ReportConfig carries environment overrides for the selection parameters.
// Raw strings are kept so unusable values can fall back instead of failing the run.
type ReportConfig struct {
	DaysAhead     string `yaml:"days_ahead" envconfig:"DAYS_AHEAD"`
	MinStudents   string `yaml:"min_students" envconfig:"MIN_STUDENTS"`
	YearOffset    *int   `yaml:"year_offset" envconfig:"START_DATE_YEAR_OFFSET"`
	ArchiveDir    string `yaml:"archive_dir" envconfig:"ARCHIVE_DIR"`
	SubjectPrefix string `yaml:"subject_prefix" envconfig:"MAIL_SUBJECT_PREFIX"`
}

// MailConfig holds the SMTP submission settings and the single recipient.
type MailConfig struct {
	Host     string        `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int           `yaml:"port" envconfig:"SMTP_PORT" validate:"omitempty,min=1,max=65535"`
	From     string        `yaml:"from" envconfig:"FROM_EMAIL" validate:"required"`
	Password string        `yaml:"-" envconfig:"FROM_PASSWORD" validate:"required"`
	To       string        `yaml:"to" envconfig:"TO_EMAIL" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"SMTP_TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LOG_LEVEL"`
	Output   string `yaml:"output" envconfig:"LOG_OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"LOG_FILE_PATH"`
}

// MetricsConfig controls run telemetry.
type MetricsConfig struct {
	Textfile      string `yaml:"textfile" envconfig:"METRICS_TEXTFILE"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
}

const (
	DefaultSMTPHost      = "smtp.gmail.com"
	DefaultSMTPPort      = 465
	DefaultTimeout       = 30 * time.Second
	DefaultYearOffset    = 2
	DefaultSubjectPrefix = "Classes needing attention"
	DefaultSheetRange    = "A:B"
)

// envNames maps validated fields to the variable an operator has to set.
var envNames = map[string]string{
	"CSVURL":   "CSV_URL",
	"From":     "FROM_EMAIL",
	"Password": "FROM_PASSWORD",
	"To":       "TO_EMAIL",
}

var validate = validator.New()

// Load reads configuration from an optional YAML file, an optional .env file and
// the process environment (highest precedence), then fills defaults and validates.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", configFile)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyDefaults() {
	if c.Source.HTTPTimeout <= 0 {
		c.Source.HTTPTimeout = DefaultTimeout
	}
	if c.Remote.SheetRange == "" {
		c.Remote.SheetRange = DefaultSheetRange
	}
	if c.Report.YearOffset == nil {
		offset := DefaultYearOffset
		c.Report.YearOffset = &offset
	}
	if c.Report.SubjectPrefix == "" {
		c.Report.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.Mail.Host == "" {
		c.Mail.Host = DefaultSMTPHost
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = DefaultSMTPPort
	}
	if c.Mail.Timeout <= 0 {
		c.Mail.Timeout = DefaultTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/classwatch.log"
	}
}

// Validate checks required settings. Absent required values are reported together
// as a MissingEnvironmentError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	var missing []string
	var invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			name, ok := envNames[fe.StructField()]
			if !ok {
				name = strings.ToUpper(fe.StructField())
			}
			missing = append(missing, name)
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	if len(missing) > 0 {
		return apperrors.NewMissingEnvironmentError(missing)
	}
	return apperrors.NewConfigError("config validation failed", fmt.Errorf("%s", strings.Join(invalid, "; ")))
}

// YearOffsetValue returns the configured start-date correction in years.
func (c *Config) YearOffsetValue() int {
	if c.Report.YearOffset == nil {
		return DefaultYearOffset
	}
	return *c.Report.YearOffset
}

// HasRemote reports whether a remote key/value table is declared.
func (r RemoteConfig) HasRemote() bool {
	return r.ConfigURL != "" || r.SheetID != ""
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	r := *c
	if r.Mail.Password != "" {
		r.Mail.Password = "***"
	}
	if r.Remote.SheetsAPIKey != "" {
		r.Remote.SheetsAPIKey = "***"
	}
	return r
}
