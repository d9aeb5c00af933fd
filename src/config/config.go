package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Market data settings
	MarketDataMode     string // "simulated" or "live"
	MarketDataBaseURL  string
	QuoteCacheTTL      time.Duration
	PriceRefreshEvery  time.Duration
	SimulatorStepPct   float64 // max absolute per-tick move, e.g. 0.05 for +/-5%
	MarketDataTimeout  time.Duration
	PriceWalkAfterFill bool // perturb the traded symbol's price after a fill

	// Tax settings
	TaxBasisFallback string // "trade-price" or "skip"

	// HTTP settings
	AllowedOrigins []string
	RateLimitEvery time.Duration
	RateLimitBurst int
	RequestTimeout time.Duration
	MaxImportBytes int64
	ReportCacheTTL time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	marketDataMode := strings.ToLower(getEnv("MARKET_DATA_MODE", "simulated"))
	if marketDataMode != "simulated" && marketDataMode != "live" {
		log.Printf("WARNING: Invalid MARKET_DATA_MODE '%s', falling back to 'simulated'.", marketDataMode)
		marketDataMode = "simulated"
	}

	taxBasisFallback := strings.ToLower(getEnv("TAX_BASIS_FALLBACK", "trade-price"))
	if taxBasisFallback != "trade-price" && taxBasisFallback != "skip" {
		log.Printf("WARNING: Invalid TAX_BASIS_FALLBACK '%s', falling back to 'trade-price'.", taxBasisFallback)
		taxBasisFallback = "trade-price"
	}

	maxImportBytesStr := getEnv("MAX_IMPORT_BYTES", "10485760") // 10MB default
	maxImportBytes, err := strconv.ParseInt(maxImportBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_IMPORT_BYTES format '%s'. Using default 10MB. Error: %v", maxImportBytesStr, err)
		maxImportBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./folioboard.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Market data
		MarketDataMode:     marketDataMode,
		MarketDataBaseURL:  getEnv("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
		QuoteCacheTTL:      getEnvAsDuration("QUOTE_CACHE_TTL", 1*time.Minute),
		PriceRefreshEvery:  getEnvAsDuration("PRICE_REFRESH_EVERY", 5*time.Second),
		SimulatorStepPct:   getEnvAsFloat("SIMULATOR_STEP_PCT", 0.05),
		MarketDataTimeout:  getEnvAsDuration("MARKET_DATA_TIMEOUT", 10*time.Second),
		PriceWalkAfterFill: getEnvAsBool("PRICE_WALK_AFTER_FILL", true),

		// Tax
		TaxBasisFallback: taxBasisFallback,

		// HTTP
		AllowedOrigins: getAllowedOrigins("ALLOWED_ORIGINS"),
		RateLimitEvery: getEnvAsDuration("RATE_LIMIT_EVERY", 100*time.Millisecond),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		MaxImportBytes: maxImportBytes,
		ReportCacheTTL: getEnvAsDuration("REPORT_CACHE_TTL", 15*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, MarketData=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.MarketDataMode)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsBool retrieves an environment variable as a bool or returns a fallback.
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getAllowedOrigins retrieves and parses the comma-separated list of allowed CORS origins.
func getAllowedOrigins(key string) []string {
	originsStr := getEnv(key, "http://localhost:3000")
	if originsStr == "" {
		return []string{}
	}
	origins := strings.Split(originsStr, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}
