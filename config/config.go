package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ticket-checkout/entity"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr       string
	RedisAddr      string
	OrderAPIAddr   string
	JaegerEndpoint string
	LogLevel       logrus.Level

	Ticket       entity.Ticket
	OrderTimeout time.Duration
	ClaimTimeout time.Duration
}

func Load() (Config, error) {
	logLevel, err := logrus.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}

	price, err := parsePrice(getEnvOrDefault("TICKET_PRICE", "500"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing TICKET_PRICE: %w", err)
	}

	orderTimeout, err := time.ParseDuration(getEnvOrDefault("ORDER_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing ORDER_TIMEOUT: %w", err)
	}

	claimTimeout, err := time.ParseDuration(getEnvOrDefault("CLAIM_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing CLAIM_TIMEOUT: %w", err)
	}

	orderAPIAddr := os.Getenv("ORDER_API_ADDR")
	if orderAPIAddr == "" {
		return Config{}, errors.New("ORDER_API_ADDR is required")
	}

	return Config{
		HTTPAddr:       getEnvOrDefault("HTTP_ADDR", ":8080"),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		OrderAPIAddr:   orderAPIAddr,
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
		LogLevel:       logLevel,
		Ticket: entity.Ticket{
			Title:       getEnvOrDefault("TICKET_TITLE", "Cowork"),
			Description: getEnvOrDefault("TICKET_DESCRIPTION", "From 10:00 to 20:00"),
			ImageURL:    getEnvOrDefault("TICKET_IMAGE_URL", "https://placehold.co/400"),
			Price:       price,
			Currency:    entity.CurrencySAT,
		},
		OrderTimeout: orderTimeout,
		ClaimTimeout: claimTimeout,
	}, nil
}

// parsePrice accepts a whole, positive amount in the smallest unit.
func parsePrice(v string) (int64, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("price must be a whole number of %s, got %s", entity.CurrencySAT, v)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("price must be positive, got %s", v)
	}

	return d.IntPart(), nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
