package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the binaries read from the environment.
type Config struct {
	Env      string
	Port     string
	AppURL   string
	LogLevel string

	// CORSOrigins also gates websocket upgrades. "*" allows any origin.
	CORSOrigins []string

	Database Database
	Redis    Redis
	RabbitMQ RabbitMQ
	JWT      JWT
	Mail     Mail
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQ struct {
	URL      string
	Exchange string
}

type JWT struct {
	Secret          string
	TTL             time.Duration
	ResetTTL        time.Duration
	VerificationTTL time.Duration
	AdminBootstrap  string
}

type Mail struct {
	Provider       string // smtp | plunk | sendgrid | log
	From           string
	ReplyTo        string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	PlunkAPIKey    string
	PlunkAPIURL    string
	SendGridAPIKey string
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	// missing .env is fine outside local development
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:         v.GetString("APP_ENV"),
		Port:        v.GetString("PORT"),
		AppURL:      strings.TrimRight(v.GetString("APP_URL"), "/"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Database: Database{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RabbitMQ: RabbitMQ{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
		JWT: JWT{
			Secret:          v.GetString("JWT_SECRET"),
			TTL:             v.GetDuration("JWT_TTL"),
			ResetTTL:        time.Duration(v.GetInt("PASSWORD_RESET_EXP_MINUTES")) * time.Minute,
			VerificationTTL: v.GetDuration("EMAIL_VERIFICATION_TTL"),
			AdminBootstrap:  v.GetString("ADMIN_BOOTSTRAP_SECRET"),
		},
		Mail: Mail{
			Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
			From:           v.GetString("MAIL_FROM"),
			ReplyTo:        v.GetString("MAIL_REPLY_TO"),
			SMTPHost:       v.GetString("SMTP_HOST"),
			SMTPPort:       v.GetString("SMTP_PORT"),
			SMTPUsername:   v.GetString("SMTP_USERNAME"),
			SMTPPassword:   v.GetString("SMTP_PASSWORD"),
			PlunkAPIKey:    v.GetString("PLUNK_API_KEY"),
			PlunkAPIURL:    v.GetString("PLUNK_API_URL"),
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "tradelink")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RABBITMQ_EXCHANGE", "job_topic")

	v.SetDefault("JWT_TTL", "72h")
	v.SetDefault("PASSWORD_RESET_EXP_MINUTES", 30)
	v.SetDefault("EMAIL_VERIFICATION_TTL", "48h")

	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@tradelink.local")
	v.SetDefault("PLUNK_API_URL", "https://api.useplunk.com/v1/send")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("config: JWT_TTL must be positive")
	}
	switch c.Mail.Provider {
	case "log", "smtp", "plunk", "sendgrid":
	default:
		return fmt.Errorf("config: unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}
	return nil
}

// Production reports whether the service runs with production settings.
func (c *Config) Production() bool {
	return c.Env == "production"
}
