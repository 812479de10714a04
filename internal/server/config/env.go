package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "BODYPACE"

// parseEnv overlays values from BODYPACE_* environment variables. A .env
// file in the working directory is loaded first if present; variables that
// are already set win over the file.
//
//	BODYPACE_HTTP_ADDR, BODYPACE_DATABASE_DRIVER, BODYPACE_DATABASE_DSN,
//	BODYPACE_SECRET_KEY, BODYPACE_ACCESS_TOKEN_TTL, BODYPACE_PASSWORD_HASH_COST,
//	BODYPACE_BLOB_BACKEND, BODYPACE_BLOB_ROOT, BODYPACE_S3_ROOT_USER,
//	BODYPACE_S3_ROOT_PASSWORD, BODYPACE_S3_BUCKET, BODYPACE_S3_REGION,
//	BODYPACE_S3_BASE_ENDPOINT, BODYPACE_S3_KEY_PREFIX, BODYPACE_MAX_UPLOAD_BYTES,
//	BODYPACE_LOG_LEVEL, BODYPACE_OPENAPI_PATH
func parseEnv(config *Config) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	fields := map[string]*string{
		"http_addr":        &config.EndpointAddrHTTP,
		"database_driver":  &config.DatabaseDriver,
		"database_dsn":     &config.DatabaseDSN,
		"secret_key":       &config.SecretKey,
		"blob_backend":     &config.BlobBackend,
		"blob_root":        &config.BlobRoot,
		"s3_root_user":     &config.S3RootUser,
		"s3_root_password": &config.S3RootPassword,
		"s3_bucket":        &config.S3Bucket,
		"s3_region":        &config.S3Region,
		"s3_base_endpoint": &config.S3BaseEndpoint,
		"s3_key_prefix":    &config.S3KeyPrefix,
		"log_level":        &config.LogLevel,
		"openapi_path":     &config.OpenAPIPath,
	}
	for key, dst := range fields {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	_ = v.BindEnv("access_token_ttl")
	if v.IsSet("access_token_ttl") {
		config.AccessTokenValidityDuration = v.GetDuration("access_token_ttl")
	}
	_ = v.BindEnv("password_hash_cost")
	if v.IsSet("password_hash_cost") {
		config.PasswordHashCost = v.GetInt("password_hash_cost")
	}
	_ = v.BindEnv("max_upload_bytes")
	if v.IsSet("max_upload_bytes") {
		config.MaxUploadBytes = v.GetInt64("max_upload_bytes")
	}
}
