package config

import (
	"os"
	"time"

	"signalcatch/internal/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// PlanSpec is the price and membership duration of one subscription plan.
// Prices are denominated in the stablecoin charged on every chain.
type PlanSpec struct {
	Price    decimal.Decimal
	Duration time.Duration
}

// Config carries the environment-driven settings for both processes.
// Business thresholds (withdrawal floor, referral rate, plan prices) are
// configuration, not constants.
type Config struct {
	Port          string
	CronSecret    string
	AdminSecret   string
	MinWithdrawal decimal.Decimal
	ReferralRate  decimal.Decimal

	IndexerBaseURL string
	IndexerAPIKey  string

	RabbitURL string

	Plans map[models.PlanType]PlanSpec
}

// Load reads configuration from the environment. A .env file is honored
// when present, matching how the deploy scripts run the binaries locally.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		CronSecret:     os.Getenv("CRON_SECRET"),
		AdminSecret:    os.Getenv("ADMIN_SECRET"),
		MinWithdrawal:  decimalEnv("MIN_WITHDRAWAL_AMOUNT", "10"),
		ReferralRate:   decimalEnv("REFERRAL_REWARD_RATE", "0.1"),
		IndexerBaseURL: getEnv("INDEXER_BASE_URL", "https://api.helius.xyz"),
		IndexerAPIKey:  os.Getenv("INDEXER_API_KEY"),
		RabbitURL:      rabbitURLFromEnv(),
		Plans: map[models.PlanType]PlanSpec{
			models.PlanMonthly:   {Price: decimalEnv("PLAN_MONTHLY_PRICE", "29.9"), Duration: 30 * 24 * time.Hour},
			models.PlanQuarterly: {Price: decimalEnv("PLAN_QUARTERLY_PRICE", "79.9"), Duration: 90 * 24 * time.Hour},
			models.PlanYearly:    {Price: decimalEnv("PLAN_YEARLY_PRICE", "299"), Duration: 365 * 24 * time.Hour},
		},
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func decimalEnv(key, fallback string) decimal.Decimal {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Fatalf("invalid decimal in %s: %q", key, raw)
	}
	return d
}

func rabbitURLFromEnv() string {
	host := os.Getenv("RABBITMQ_HOST")
	if host == "" {
		return ""
	}
	return "amqp://" + os.Getenv("RABBITMQ_USER") + ":" + os.Getenv("RABBITMQ_PASSWORD") +
		"@" + host + ":" + getEnv("RABBITMQ_PORT", "5672") + "/"
}
