package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module loads configuration from the environment.
var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(NewRatesConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	HTTPPort    string

	AuthJWTSecret      string
	AuthTokenTTLMin    int
	BootstrapAdmin     string
	BootstrapAdminPass string

	InvoiceDir string

	SchedulerEnabled     bool
	SchedulerIntervalMin int

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

func New() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment directly")
	}

	return Config{
		AppName:     getEnv("APP_NAME", "payroll"),
		AppVersion:  getEnv("APP_VERSION", "dev"),
		Mode:        getEnv("MODE", "release"),
		Environment: getEnv("ENVIRONMENT", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthTokenTTLMin:    getEnvInt("AUTH_TOKEN_TTL_MIN", 480),
		BootstrapAdmin:     getEnv("AUTH_BOOTSTRAP_ADMIN", "admin"),
		BootstrapAdminPass: getEnv("AUTH_BOOTSTRAP_ADMIN_PASSWORD", ""),

		InvoiceDir: getEnv("INVOICE_DIR", "data/invoices"),

		SchedulerEnabled:     getEnv("SCHEDULER_ENABLED", "true") == "true",
		SchedulerIntervalMin: getEnvInt("SCHEDULER_INTERVAL_MIN", 60),

		DBType:            getEnv("DB_TYPE", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            getEnv("DB_NAME", "payroll"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBMaxIdleConn:     getEnvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getEnvInt("DB_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getEnvInt("DB_CONN_MAX_IDLE_TIME", 60),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid integer for %s, using default %d", key, def)
		return def
	}
	return parsed
}
