package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	NewsAPIBaseURL  string
	NewsAPIKey      string
	PageSize        int
	HTTPTimeout     time.Duration
	BreakerFailures int

	MongoURI              string
	MongoDBName           string
	MongoSearchCollection string
	MongoViewCollection   string

	KafkaBrokers   []string
	KafkaViewTopic string
	KafkaDLQTopic  string
	KafkaGroupID   string

	LogSampleInterval int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		NewsAPIBaseURL:  getEnv("NEWS_API_BASE_URL", "https://newsapi.org"),
		NewsAPIKey:      getEnv("NEWS_API_KEY", ""),
		PageSize:        getIntEnv("PAGE_SIZE", 20),
		HTTPTimeout:     getDurationEnv("HTTP_TIMEOUT", 10*time.Second),
		BreakerFailures: getIntEnv("BREAKER_FAILURES", 3),

		MongoURI:              getEnv("MONGO_URI", "mongodb://mongodb:27017"),
		MongoDBName:           getEnv("MONGO_DB_NAME", "news_search"),
		MongoSearchCollection: getEnv("MONGO_SEARCH_COLLECTION", "searches"),
		MongoViewCollection:   getEnv("MONGO_VIEW_COLLECTION", "article_views"),

		KafkaBrokers:   getListEnv("KAFKA_BROKERS", "kafka:29092"),
		KafkaViewTopic: getEnv("KAFKA_VIEW_TOPIC", "article_views"),
		KafkaDLQTopic:  getEnv("KAFKA_DLQ_TOPIC", "article_views_dlq"),
		KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "history-sync-group"),

		LogSampleInterval: getIntEnv("LOG_SAMPLE_INTERVAL", 10),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// Try parsing as duration string (e.g. "1m", "60s")
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Try parsing as integer seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

// getListEnv splits a comma-separated value, dropping empty entries.
func getListEnv(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
