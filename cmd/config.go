package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"preorder/internal/core/domain/model/schedule"
	"preorder/internal/jobs"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverGorm   = "gorm"
	DriverPgx    = "pgx"
	DriverMemory = "memory"

	EnvironmentProduction = "production"
)

type Config struct {
	HTTPPort          string `yaml:"http_port"`
	PersistenceDriver string `yaml:"persistence_driver"`

	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSslMode  string `yaml:"db_sslmode"`

	RedisURL    string `yaml:"redis_url"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	PickupWeekday    string `yaml:"pickup_weekday"`
	PickupTime       string `yaml:"pickup_time"`
	PickupTimezone   string `yaml:"pickup_timezone"`
	DeadlineLeadDays int    `yaml:"deadline_lead_days"`
	TestOffsetDays   int    `yaml:"test_offset_days"`
	Environment      string `yaml:"environment"`
	AllowGuestBasket bool   `yaml:"allow_guest_basket"`

	SweepSchedule string `yaml:"sweep_schedule"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	TraceStdout   bool   `yaml:"trace_stdout"`
}

// LoadConfig reads .env when present, then the process environment, then
// the YAML file at path when path is not empty. Later sources win.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, readErr)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func configFromEnv(getenv func(string) string) (Config, error) {
	env := func(key, defaultValue string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return defaultValue
	}

	var problems []error
	intEnv := func(key string, defaultValue int) int {
		raw := getenv(key)
		if raw == "" {
			return defaultValue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
		}
		return value
	}
	boolEnv := func(key string) bool {
		raw := getenv(key)
		if raw == "" {
			return false
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", key, err))
		}
		return value
	}

	cfg := Config{
		HTTPPort:          env("HTTP_PORT", "8080"),
		PersistenceDriver: env("PERSISTENCE_DRIVER", DriverGorm),
		DBHost:            env("DB_HOST", "localhost"),
		DBPort:            env("DB_PORT", "5432"),
		DBUser:            env("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD"),
		DBName:            env("DB_NAME", "preorder"),
		DBSslMode:         env("DB_SSLMODE", "disable"),
		RedisURL:          getenv("REDIS_URL"),
		RabbitMQURL:       getenv("RABBITMQ_URL"),
		PickupWeekday:     env("PICKUP_WEEKDAY", "thursday"),
		PickupTime:        env("PICKUP_TIME", "00:00"),
		PickupTimezone:    getenv("PICKUP_TIMEZONE"),
		DeadlineLeadDays:  intEnv("DEADLINE_LEAD_DAYS", 2),
		TestOffsetDays:    intEnv("TEST_OFFSET_DAYS", 0),
		Environment:       env("ENVIRONMENT", "development"),
		AllowGuestBasket:  boolEnv("ALLOW_GUEST_BASKET"),
		SweepSchedule:     env("SWEEP_SCHEDULE", jobs.DefaultSchedule),
		LogLevel:          env("LOG_LEVEL", "info"),
		LogFormat:         env("LOG_FORMAT", "json"),
		TraceStdout:       boolEnv("TRACE_STDOUT"),
	}
	return cfg, errors.Join(problems...)
}

func (c Config) Validate() error {
	var problems []error
	switch c.PersistenceDriver {
	case DriverGorm, DriverPgx, DriverMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown persistence driver %q", c.PersistenceDriver))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		problems = append(problems, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if _, err := c.Calendar(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}

// DSN is the keyword/value connection string understood by both GORM's
// postgres driver and pgxpool.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// OffsetDays is the test pickup offset; production always runs without one.
func (c Config) OffsetDays() int {
	if strings.EqualFold(c.Environment, EnvironmentProduction) {
		return 0
	}
	return c.TestOffsetDays
}

func (c Config) Calendar() (schedule.Calendar, error) {
	weekday, err := parseWeekday(c.PickupWeekday)
	if err != nil {
		return schedule.Calendar{}, err
	}

	clock, err := time.Parse("15:04", c.PickupTime)
	if err != nil {
		return schedule.Calendar{}, fmt.Errorf("pickup time %q: %w", c.PickupTime, err)
	}

	location := time.Local
	if c.PickupTimezone != "" {
		if location, err = time.LoadLocation(c.PickupTimezone); err != nil {
			return schedule.Calendar{}, fmt.Errorf("pickup timezone: %w", err)
		}
	}

	return schedule.NewCalendar(schedule.Config{
		Weekday:          weekday,
		Hour:             clock.Hour(),
		Minute:           clock.Minute(),
		Location:         location,
		DeadlineLeadDays: c.DeadlineLeadDays,
	})
}

// parseWeekday accepts English day names, their three-letter forms, or 0-6
// with Sunday as 0.
func parseWeekday(raw string) (time.Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("pickup weekday %d is not in 0..6", n)
		}
		return time.Weekday(n), nil
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if value == name || value == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown pickup weekday %q", raw)
}
