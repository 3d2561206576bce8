package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Mangrove Watch services
type Config struct {
	// Server configuration
	Port string

	// Security
	JWTSecret string

	// Classifier inference endpoint
	ClassifierURL    string
	ClassifierAPIKey string
	ClassifierModel  string
	LabelsFile       string

	// Imagery archive (satellite statistics API)
	ImageryTokenURL     string
	ImageryStatsURL     string
	ImageryClientID     string
	ImageryClientSecret string

	// Geocoding
	GeocoderURL       string
	GeocoderUserAgent string

	// Telegram bot
	BotToken          string
	BotPollTimeout    time.Duration
	BotMessageTimeout time.Duration
	BotWorkers        int

	// Report feed (optional)
	AMQPURL          string
	ReportExchange   string
	ReportRoutingKey string

	// Upload handling
	UploadFolder string
}

// Load loads configuration from environment variables
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),

		ClassifierURL:    getEnv("CLASSIFIER_URL", "http://localhost:5001/analyze"),
		ClassifierAPIKey: getEnv("CLASSIFIER_API_KEY", ""),
		ClassifierModel:  getEnv("CLASSIFIER_MODEL", "clip-vit-base-patch32"),
		LabelsFile:       getEnv("LABELS_FILE", "labels.txt"),

		ImageryTokenURL:     getEnv("IMAGERY_TOKEN_URL", "https://services.sentinel-hub.com/oauth/token"),
		ImageryStatsURL:     getEnv("IMAGERY_STATS_URL", "https://services.sentinel-hub.com/api/v1/statistics"),
		ImageryClientID:     getEnv("IMAGERY_CLIENT_ID", ""),
		ImageryClientSecret: getEnv("IMAGERY_CLIENT_SECRET", ""),

		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "mangrove_watch_bot"),

		BotToken:          getEnv("BOT_TOKEN", ""),
		BotPollTimeout:    getDurationEnv("BOT_POLL_TIMEOUT", 30*time.Second),
		BotMessageTimeout: getDurationEnv("BOT_MESSAGE_TIMEOUT", 30*time.Second),
		BotWorkers:        getIntEnv("BOT_WORKERS", 4),

		AMQPURL:          getEnv("AMQP_URL", ""),
		ReportExchange:   getEnv("REPORT_EXCHANGE", "mangrove_reports"),
		ReportRoutingKey: getEnv("REPORT_ROUTING_KEY", "report.saved"),

		UploadFolder: getEnv("UPLOAD_FOLDER", "uploads"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
