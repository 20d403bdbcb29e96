package app

import (
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/gateway/flow"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr string
	OpsAddr  string

	PostgresDSN string
	RedisAddr   string

	KafkaBrokers []string

	JWTSecret string

	OrderTTL      time.Duration
	SweepInterval time.Duration
	GuestCartTTL  time.Duration

	Flow flow.Config
}

// DefaultConfig возвращает базовые значения конфигурации.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:  ":8080",
		OpsAddr:   ":9090",
		RedisAddr: "localhost:6379",
		Flow: flow.Config{
			BaseURL:  "https://www.flow.cl/api",
			Currency: "CLP",
		},
	}
}

// FromEnv читает конфигурацию из переменных окружения поверх значений по умолчанию.
func FromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.HTTPAddr, "CHECKOUT_HTTP_ADDR")
	setString(&cfg.OpsAddr, "CHECKOUT_OPS_ADDR")
	setString(&cfg.PostgresDSN, "CHECKOUT_POSTGRES_DSN")
	setString(&cfg.RedisAddr, "CHECKOUT_REDIS_ADDR")
	setString(&cfg.JWTSecret, "CHECKOUT_JWT_SECRET")

	setDuration(&cfg.OrderTTL, "CHECKOUT_ORDER_TTL")
	setDuration(&cfg.SweepInterval, "CHECKOUT_SWEEP_INTERVAL")
	setDuration(&cfg.GuestCartTTL, "CHECKOUT_GUEST_CART_TTL")

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}

	setString(&cfg.Flow.BaseURL, "FLOW_BASE_URL")
	setString(&cfg.Flow.APIKey, "FLOW_API_KEY")
	setString(&cfg.Flow.SecretKey, "FLOW_SECRET_KEY")
	setString(&cfg.Flow.Currency, "FLOW_CURRENCY")
	setString(&cfg.Flow.ConfirmationURL, "FLOW_CONFIRMATION_URL")
	setString(&cfg.Flow.ReturnURL, "FLOW_RETURN_URL")

	return cfg
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
	}
}
