package config

import (
	"os"
	"strconv"
)

// Config holds every runtime setting, loaded once from the environment at
// startup. Business logic receives it (or the relevant fields) through
// constructors and never reads the environment itself.
type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Bearer tokens
	TokenSecret     string
	TokenTTLSeconds int

	// Paystack
	PaystackSecretKey string
	PaystackPublicKey string
	PaystackBaseURL   string

	// Payments policy
	AdminSecret           string
	AutoDowngradeOnRefund bool
	MinAmountKobo         int64
	PaidPlanDays          int
	FoundingCap           int

	// Content access
	FreeSampleLimitObjective int
	FreeSampleLimitTheory    int
	DiagramsDir              string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "exampartner"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		TokenSecret:     getEnv("JWT_SECRET", ""),
		TokenTTLSeconds: getEnvInt("JWT_TTL_SECONDS", 86400),

		PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackPublicKey: getEnv("PAYSTACK_PUBLIC_KEY", ""),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),

		AdminSecret:           getEnv("ADMIN_SECRET", ""),
		AutoDowngradeOnRefund: getEnvBool("AUTO_DOWNGRADE_ON_REFUND", false),
		MinAmountKobo:         int64(getEnvInt("MIN_AMOUNT_KOBO", 100000)),
		PaidPlanDays:          getEnvInt("PAID_PLAN_DAYS", 30),
		FoundingCap:           getEnvInt("FOUNDING_CAP", 100),

		FreeSampleLimitObjective: getEnvInt("FREE_SAMPLE_LIMIT_OBJ", 10),
		FreeSampleLimitTheory:    getEnvInt("FREE_SAMPLE_LIMIT_THEORY", 2),
		DiagramsDir:              getEnv("DIAGRAMS_DIR", "./diagrams"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	switch val {
	case "1", "true", "yes", "y", "on", "TRUE", "True":
		return true
	}
	return false
}
