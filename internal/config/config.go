package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	BotToken string

	ListenAddr     string
	JWTSecret      string
	JWTTTL         time.Duration
	InitDataMaxAge time.Duration

	// SchedulerTick is how often the accrual engine wakes up;
	// FarmingInterval is the accounting interval rewards are computed over.
	SchedulerTick   time.Duration
	FarmingInterval time.Duration

	UniRatePerInterval decimal.Decimal
	MinUniDeposit      decimal.Decimal
	MinWithdrawal      decimal.Decimal

	ReferralLevelRates []decimal.Decimal
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "unifarm"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		JWTSecret:      getEnv("JWT_SECRET", "unifarm-dev-secret"),
		JWTTTL:         getEnvDuration("JWT_TTL", 24*time.Hour),
		InitDataMaxAge: getEnvDuration("INIT_DATA_MAX_AGE", time.Hour),

		SchedulerTick:   getEnvDuration("SCHEDULER_TICK", 5*time.Minute),
		FarmingInterval: getEnvDuration("FARMING_INTERVAL", time.Hour),

		UniRatePerInterval: getEnvDecimal("UNI_RATE_PER_INTERVAL", "0.01"),
		MinUniDeposit:      getEnvDecimal("MIN_UNI_DEPOSIT", "1"),
		MinWithdrawal:      getEnvDecimal("MIN_WITHDRAWAL", "1"),

		ReferralLevelRates: getEnvDecimalList("REFERRAL_LEVEL_RATES", "0.05,0.03,0.02"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration in %s: %v, using default %s", key, err, fallback)
		return fallback
	}
	return d
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Printf("Invalid decimal in %s: %v, using default %s", key, err, fallback)
		d = decimal.RequireFromString(fallback)
	}
	return d
}

func getEnvDecimalList(key, fallback string) []decimal.Decimal {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}

	rates, err := parseDecimalList(value)
	if err != nil {
		log.Printf("Invalid decimal list in %s: %v, using default %s", key, err, fallback)
		rates, _ = parseDecimalList(fallback)
	}
	return rates
}

func parseDecimalList(value string) ([]decimal.Decimal, error) {
	parts := strings.Split(value, ",")
	rates := make([]decimal.Decimal, 0, len(parts))
	for _, part := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		rates = append(rates, d)
	}
	return rates, nil
}
