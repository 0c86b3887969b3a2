package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Database holds Postgres connection settings.
type Database struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// SMTP holds mail sender settings.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Platforms holds per-target credentials. A target with empty
// credentials is reported as a configuration failure at dispatch time.
type Platforms struct {
	TwitterBearerToken   string
	LinkedInAccessToken  string
	LinkedInPersonID     string
	FacebookAccessToken  string
	FacebookPageID       string
	InstagramAccessToken string
	InstagramAccountID   string
}

type Config struct {
	HTTPPort string

	DB Database

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL string

	SMTP SMTP

	Platforms Platforms

	RateLimitPerCaller int64
	RateLimitWindow    time.Duration

	PublishTimeout  time.Duration
	MailTimeout     time.Duration
	SchedulerGrace  time.Duration
	NotifyEmail     string
}

// Load reads configuration from the environment. Call godotenv.Load
// first if a .env file should be honored.
func Load() Config {
	return Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		DB: Database{
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "orchestrator"),
		},
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		AMQPURL:       getEnv("AMQP_URL", ""),
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM_EMAIL", getEnv("SMTP_USERNAME", "")),
		},
		Platforms: Platforms{
			TwitterBearerToken:   getEnv("TWITTER_BEARER_TOKEN", ""),
			LinkedInAccessToken:  getEnv("LINKEDIN_ACCESS_TOKEN", ""),
			LinkedInPersonID:     getEnv("LINKEDIN_PERSON_ID", ""),
			FacebookAccessToken:  getEnv("FACEBOOK_ACCESS_TOKEN", ""),
			FacebookPageID:       getEnv("FACEBOOK_PAGE_ID", ""),
			InstagramAccessToken: getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
			InstagramAccountID:   getEnv("INSTAGRAM_ACCOUNT_ID", ""),
		},
		RateLimitPerCaller: int64(getEnvInt("RATE_LIMIT_PER_CALLER", 10)),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		PublishTimeout:     getEnvDuration("PUBLISH_TIMEOUT", 15*time.Second),
		MailTimeout:        getEnvDuration("MAIL_TIMEOUT", 30*time.Second),
		SchedulerGrace:     getEnvDuration("SCHEDULER_GRACE", time.Hour),
		NotifyEmail:        getEnv("NOTIFY_EMAIL", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
