package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Analysis window, half-open [Start, End)
	WindowStart string
	WindowEnd   string

	// Run mode: "batch" runs one analysis and exits, "serve" additionally
	// keeps the results API up, "collect" runs the counter-feed collector
	Mode string

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// HTTP API
	APIPort int

	// Counter feed collector
	CounterFeedURL string

	// Output
	ExportDir string

	// Quality alert webhook endpoints
	AlertWebhooks []string

	// Analysis thresholds
	Analysis AnalysisConfig
}

// AnalysisConfig holds reconciliation thresholds and sampling parameters
type AnalysisConfig struct {
	// Toll-square flow/OD consistency band; rows inside are flagged normal
	QualityBandLow  float64
	QualityBandHigh float64

	// Gantry function classification
	ODRatioThreshold      float64 // mean od_ratio above this -> origin_dominant
	TransitRatioThreshold float64 // else mean transit_ratio above this -> channel

	// Median-case sampling
	SamplerSeed     int64
	SamplerMaxCases int
	MedianBand      float64 // relative half-width around the median, e.g. 0.10

	// Entry/exit balance
	BalanceDeviation float64 // |mean exit/entry - 1| above this -> imbalanced

	// Trip anomaly detection
	LongTravelHours   float64
	ShortTravelMinute float64

	// Notifications
	AbnormalShareAlert float64 // webhook fires when abnormal share exceeds this
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		WindowStart: os.Getenv("ANALYSIS_WINDOW_START"),
		WindowEnd:   os.Getenv("ANALYSIS_WINDOW_END"),
		Mode:        getEnvOrDefault("RUN_MODE", "batch"),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "toll_dwd"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "toll"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "toll123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		APIPort: getEnvInt("API_PORT", 8080),

		CounterFeedURL: getEnvOrDefault("COUNTER_FEED_URL", "wss://counters.example.net/feed"),

		ExportDir: getEnvOrDefault("EXPORT_DIR", "od_audit_output"),

		AlertWebhooks: getEnvList("AUDIT_ALERT_WEBHOOKS"),

		Analysis: AnalysisConfig{
			// Defaults match the established audit methodology
			QualityBandLow:  getEnvFloat("AUDIT_QUALITY_BAND_LOW", 0.8),
			QualityBandHigh: getEnvFloat("AUDIT_QUALITY_BAND_HIGH", 1.2),

			ODRatioThreshold:      getEnvFloat("AUDIT_OD_RATIO_THRESHOLD", 0.5),
			TransitRatioThreshold: getEnvFloat("AUDIT_TRANSIT_RATIO_THRESHOLD", 0.8),

			SamplerSeed:     int64(getEnvInt("AUDIT_SAMPLER_SEED", 42)),
			SamplerMaxCases: getEnvInt("AUDIT_SAMPLER_MAX_CASES", 10),
			MedianBand:      getEnvFloat("AUDIT_MEDIAN_BAND", 0.10),

			BalanceDeviation: getEnvFloat("AUDIT_BALANCE_DEVIATION", 0.3),

			LongTravelHours:   getEnvFloat("AUDIT_LONG_TRAVEL_HOURS", 24),
			ShortTravelMinute: getEnvFloat("AUDIT_SHORT_TRAVEL_MINUTES", 1),

			AbnormalShareAlert: getEnvFloat("AUDIT_ABNORMAL_SHARE_ALERT", 0.5),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvList gets a comma-separated environment variable as a string slice
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
