package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	KafkaEventTopic string

	// LLM provider
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModelName      string
	LLMTimeout        time.Duration
	LLMMaxRetries     int
	LLMOAuthTokenURL  string
	LLMOAuthClientID  string
	LLMOAuthClientSec string

	// Analysis
	AnalysisCacheTTL  time.Duration
	ScoringConfigPath string
	WriterQueueSize   int

	// Streaming
	HeartbeatInterval time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 120*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "meditrack"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "meditrack123"),
		PostgresDB:       getEnv("POSTGRES_DB", "meditrack"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "meditrack-analysis"),
		KafkaEventTopic: getEnv("KAFKA_EVENT_TOPIC", "meditrack.events"),

		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.x.ai/v1"),
		LLMModelName:      getEnv("LLM_MODEL_NAME", "grok-beta"),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxRetries:     getIntEnv("LLM_MAX_RETRIES", 3),
		LLMOAuthTokenURL:  getEnv("LLM_OAUTH_TOKEN_URL", ""),
		LLMOAuthClientID:  getEnv("LLM_OAUTH_CLIENT_ID", ""),
		LLMOAuthClientSec: getEnv("LLM_OAUTH_CLIENT_SECRET", ""),

		AnalysisCacheTTL:  getDuration("ANALYSIS_CACHE_TTL", time.Hour),
		ScoringConfigPath: getEnv("SCORING_CONFIG_PATH", ""),
		WriterQueueSize:   getIntEnv("REPORT_WRITER_QUEUE", 64),

		HeartbeatInterval: getDuration("SSE_HEARTBEAT_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
