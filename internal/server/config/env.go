package config

import (
	"os"
	"time"
)

// parseEnv overlays values from the process environment. PORT, DATABASE_URL
// and JWT_SECRET are honoured for compatibility with common .env files; the
// RESOURCEHUB_* names win when both are set.
func parseEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.EndpointAddrHTTP = ":" + port
	}
	setString(&config.DatabaseDSN, os.Getenv("DATABASE_URL"))
	setString(&config.SecretKey, os.Getenv("JWT_SECRET"))

	setString(&config.EndpointAddrHTTP, os.Getenv("RESOURCEHUB_ADDR"))
	setString(&config.DatabaseDSN, os.Getenv("RESOURCEHUB_DATABASE_DSN"))
	setString(&config.SecretKey, os.Getenv("RESOURCEHUB_SECRET_KEY"))
	setString(&config.UploadDir, os.Getenv("RESOURCEHUB_UPLOAD_DIR"))
	setString(&config.StorageBackend, os.Getenv("RESOURCEHUB_STORAGE_BACKEND"))
	setString(&config.S3RootUser, os.Getenv("RESOURCEHUB_S3_ROOT_USER"))
	setString(&config.S3RootPassword, os.Getenv("RESOURCEHUB_S3_ROOT_PASSWORD"))
	setString(&config.S3Bucket, os.Getenv("RESOURCEHUB_S3_BUCKET"))
	setString(&config.S3Region, os.Getenv("RESOURCEHUB_S3_REGION"))
	setString(&config.S3BaseEndpoint, os.Getenv("RESOURCEHUB_S3_BASE_ENDPOINT"))

	if v := os.Getenv("RESOURCEHUB_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.AccessTokenValidityDuration = d
		}
	}
}
