package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Mailer    MailerConfig    `koanf:"mailer"`
	Racing    RacingConfig    `koanf:"racing"`
	Officials OfficialsConfig `koanf:"officials"`
	Push      PushConfig      `koanf:"push"`
	Logger    LoggerConfig    `koanf:"logger"`
	Storage   StorageConfig   `koanf:"storage"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// GatewayConfig holds the payment gateway merchant credentials and the URLs
// round-tripped through the redirect flow.
type GatewayConfig struct {
	MerchantID  string `koanf:"merchant_id" validate:"required"`
	MerchantKey string `koanf:"merchant_key" validate:"required"`
	Passphrase  string `koanf:"passphrase" validate:"required"`
	ProcessURL  string `koanf:"process_url" validate:"required"`
	ReturnURL   string `koanf:"return_url" validate:"required"`
	CancelURL   string `koanf:"cancel_url" validate:"required"`
	NotifyURL   string `koanf:"notify_url" validate:"required"`

	// RejectInvalidSignature hard-fails notifications whose signature does
	// not verify. Off by default: mismatches are logged and processing
	// continues, and reconciliation catches the fallout.
	RejectInvalidSignature bool `koanf:"reject_invalid_signature"`
}

type MailerConfig struct {
	APIKey      string        `koanf:"api_key" validate:"required"`
	FromEmail   string        `koanf:"from_email" validate:"required"`
	FromName    string        `koanf:"from_name"`
	BaseURL     string        `koanf:"base_url" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
	BaseDelay   int32         `koanf:"base_delay"`
	MaxRetries  int32         `koanf:"max_retries"`
	AdminEmail  string        `koanf:"admin_email"`
}

// RacingConfig carries championship-season settings that are configuration,
// not data: the regional race calendar and the team codes that admit free
// entries.
type RacingConfig struct {
	SeasonYear        int      `koanf:"season_year" validate:"required"`
	RegionalRaceDates []string `koanf:"regional_race_dates"`
	TeamCodes         []string `koanf:"team_codes"`

	// EngineRentalFeeCents is subtracted from the charged amount when a
	// season-pass holder enters a non-regional round with an engine rental
	// selected.
	EngineRentalFeeCents int64 `koanf:"engine_rental_fee_cents"`
}

type OfficialsConfig struct {
	Token string `koanf:"token" validate:"required"`
}

// PushConfig is recognized for the driver-portal push notification
// side-channel; the core never reads it.
type PushConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`
	VAPIDSubject    string `koanf:"vapid_subject"`
}

type StorageConfig struct {
	FailedNotificationsPath string `koanf:"failed_notifications_path" validate:"required"`
	UploadsRoot             string `koanf:"uploads_root" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func (lc LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("REGISTRY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "REGISTRY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
