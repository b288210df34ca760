package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	JWTSecret                 string
	DBHost                    string
	DBPort                    string
	DBUser                    string
	DBPass                    string
	DBName                    string
	DBNameTest                string
	RedisHost                 string
	RedisPort                 string
	RedisPassword             string
	RedisDB                   int
	MinioHost                 string
	MinioPort                 string
	MinioUsername             string
	MinioPassword             string
	BucketName                string
	BucketNameTest            string
	RabbitMQURL               string
	RabbitMQHost              string
	RabbitMQPort              string
	RabbitMQUser              string
	RabbitMQPass              string
	RabbitMQVhost             string
	RabbitMQPrefetch          int
	TransferWorkerConcurrency int
	TransferRate              float64
	TransferBurst             int
	TransferRetryMax          int
	TransferRetryDelays       []time.Duration
	DownloadDir               string
	ProcessingDir             string
	DownloadTimeout           time.Duration
	DownloadPollInterval      time.Duration
	DownloadStallThreshold    time.Duration
	FetchAttempts             int
	FetchRetryDelay           time.Duration
	FetchHTTPTimeout          time.Duration
	SourceAllowedHosts        []string
	SourceAllowPrivate        bool
	MaxFileBytes              int64
	TempFileMaxAge            time.Duration
	ShareLinkExpiry           time.Duration
	NotifyEmail               string
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDurationList(key string, defaultValue []time.Duration) []time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// InitConfig loads configuration from the environment.
func InitConfig() {
	rabbitHost := getEnv("RABBITMQ_HOST", "localhost")
	rabbitPort := getEnv("RABBITMQ_PORT", "5672")
	rabbitUser := getEnv("RABBITMQ_USER", "guest")
	rabbitPass := getEnv("RABBITMQ_PASSWORD", "guest")
	rabbitVhost := getEnv("RABBITMQ_VHOST", "/")
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(rabbitUser),
			url.PathEscape(rabbitPass),
			rabbitHost,
			rabbitPort,
			url.PathEscape(rabbitVhost),
		)
	}
	retryDelays := getEnvDurationList(
		"TRANSFER_RETRY_DELAYS",
		[]time.Duration{10 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute},
	)
	AppConfig = Config{
		JWTSecret:                 getEnv("JWT_SECRET", "l=ax+b"),
		DBHost:                    getEnv("DB_HOST", "localhost"),
		DBPort:                    getEnv("DB_PORT", "3306"),
		DBUser:                    getEnv("DB_USER", "root"),
		DBPass:                    getEnv("DB_PASS", "root"),
		DBName:                    getEnv("DB_NAME", "asset_vault"),
		DBNameTest:                getEnv("DB_NAME_TEST", "asset_vault_test"),
		RedisHost:                 getEnv("REDIS_HOST", "localhost"),
		RedisPort:                 getEnv("REDIS_PORT", "6379"),
		RedisPassword:             getEnv("REDIS_PASSWORD", ""),
		RedisDB:                   0,
		MinioHost:                 getEnv("MINIO_HOST", "localhost"),
		MinioPort:                 getEnv("MINIO_PORT", "9000"),
		MinioUsername:             getEnv("MINIO_USERNAME", "minioadmin"),
		MinioPassword:             getEnv("MINIO_PASSWORD", "minioadmin"),
		BucketName:                getEnv("BUCKET_NAME", "asset-vault"),
		BucketNameTest:            getEnv("BUCKET_NAME_TEST", "asset-vault-test"),
		RabbitMQURL:               rabbitURL,
		RabbitMQHost:              rabbitHost,
		RabbitMQPort:              rabbitPort,
		RabbitMQUser:              rabbitUser,
		RabbitMQPass:              rabbitPass,
		RabbitMQVhost:             rabbitVhost,
		RabbitMQPrefetch:          getEnvInt("RABBITMQ_PREFETCH", 8),
		TransferWorkerConcurrency: getEnvInt("TRANSFER_WORKER_CONCURRENCY", 4),
		TransferRate:              getEnvFloat("TRANSFER_RATE", 2),
		TransferBurst:             getEnvInt("TRANSFER_BURST", 4),
		TransferRetryMax:          getEnvInt("TRANSFER_RETRY_MAX", 3),
		TransferRetryDelays:       retryDelays,
		DownloadDir:               getEnv("DOWNLOAD_DIR", "/tmp/downloads"),
		ProcessingDir:             getEnv("PROCESSING_DIR", "/tmp/processing"),
		DownloadTimeout:           getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		DownloadPollInterval:      getEnvDuration("DOWNLOAD_POLL_INTERVAL", time.Second),
		DownloadStallThreshold:    getEnvDuration("DOWNLOAD_STALL_THRESHOLD", 30*time.Second),
		FetchAttempts:             getEnvInt("FETCH_ATTEMPTS", 3),
		FetchRetryDelay:           getEnvDuration("FETCH_RETRY_DELAY", 2*time.Second),
		FetchHTTPTimeout:          getEnvDuration("FETCH_HTTP_TIMEOUT", 30*time.Minute),
		SourceAllowedHosts:        getEnvList("SOURCE_ALLOW_HOSTS", nil),
		SourceAllowPrivate:        getEnvBool("SOURCE_ALLOW_PRIVATE", false),
		MaxFileBytes:              getEnvInt64("MAX_FILE_BYTES", 0),
		TempFileMaxAge:            getEnvDuration("TEMP_FILE_MAX_AGE", 24*time.Hour),
		ShareLinkExpiry:           getEnvDuration("SHARE_LINK_EXPIRY", 7*24*time.Hour),
		NotifyEmail:               getEnv("NOTIFY_EMAIL", ""),
	}
}
