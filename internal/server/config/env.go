package config

import (
	"os"
	"strings"
	"time"
)

// parseEnv overlays values from the environment. Unset variables leave the
// current value untouched. KAFKA_BROKERS is a comma-separated list;
// ACCESS_TOKEN_VALIDITY uses time.ParseDuration syntax ("15m", "1h").
func parseEnv(config *Config) {
	config.HTTPAddr = getEnv("HTTP_ADDR", config.HTTPAddr)
	config.MetricsAddr = getEnv("METRICS_ADDR", config.MetricsAddr)
	config.DatabaseDSN = getEnv("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = getEnv("SECRET_KEY", config.SecretKey)

	if v := os.Getenv("ACCESS_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		config.KafkaBrokers = strings.Split(v, ",")
	}
	config.KafkaTopic = getEnv("KAFKA_TOPIC", config.KafkaTopic)
	config.KafkaGroupID = getEnv("KAFKA_GROUP_ID", config.KafkaGroupID)

	config.PushEndpoint = getEnv("PUSH_ENDPOINT", config.PushEndpoint)
	config.PushServerKey = getEnv("PUSH_SERVER_KEY", config.PushServerKey)

	config.S3RootUser = getEnv("S3_ROOT_USER", config.S3RootUser)
	config.S3RootPassword = getEnv("S3_ROOT_PASSWORD", config.S3RootPassword)
	config.S3Bucket = getEnv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getEnv("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = getEnv("S3_BASE_ENDPOINT", config.S3BaseEndpoint)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
