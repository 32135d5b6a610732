package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	RedisURI           string
	ProcessingAPIURL   string
	ProcessingAPIKey   string
	R2                 R2
	SecretKey          string
	CookieName         string
	DriverCadence      string
	QueueBatchSize     int
	RetryBackoffBase   int
	MaxJobAttempts     int
}

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", ""),
		ProcessingAPIURL:   getEnv("PROCESSING_API_URL", ""),
		ProcessingAPIKey:   getEnv("PROCESSING_API_KEY", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:        getEnv("SECRET_KEY", ""),
		CookieName:       getEnv("COOKIE_NAME", "channelpilot_session"),
		DriverCadence:    getEnv("DRIVER_CADENCE", "@every 00h01m00s"),
		QueueBatchSize:   getEnvInt("QUEUE_BATCH_SIZE", 10),
		RetryBackoffBase: getEnvInt("RETRY_BACKOFF_BASE_SECONDS", 60),
		MaxJobAttempts:   getEnvInt("MAX_JOB_ATTEMPTS", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
