// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment overlay and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the Bodypace server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDriver / DatabaseDSN: relational store, "sqlite" (embedded) or "pgx" (PostgreSQL).
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - AccessTokenValidityDuration: lifetime of issued access tokens.
//   - PasswordHashCost: bcrypt cost factor.
//   - BlobBackend: "fs" stores blobs under BlobRoot, "s3" in S3Bucket.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint / S3KeyPrefix: object storage settings.
//   - MaxUploadBytes: size limit for an uploaded document file.
//   - OpenAPIPath / OnlyGenerateOpenAPI: where the OpenAPI document is written,
//     and whether to exit right after writing it.
type Config struct {
	EndpointAddrHTTP            string
	DatabaseDriver              string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	PasswordHashCost            int
	BlobBackend                 string
	BlobRoot                    string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	S3KeyPrefix                 string
	MaxUploadBytes              int64
	LogLevel                    string
	OpenAPIPath                 string
	OnlyGenerateOpenAPI         bool
}

const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:database/database.sqlite?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 48 * time.Hour
	c.PasswordHashCost = bcrypt.DefaultCost
	c.BlobBackend = BlobBackendFS
	c.BlobRoot = "database/documents"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "bodypace"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3KeyPrefix = "documents/"
	c.MaxUploadBytes = 32 << 20
	c.LogLevel = "info"
	c.OpenAPIPath = "docs/openapi.yaml"
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key must not be empty"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration))
	}
	if c.PasswordHashCost < bcrypt.MinCost || c.PasswordHashCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("password hash cost must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.PasswordHashCost))
	}
	switch c.BlobBackend {
	case BlobBackendFS:
		if c.BlobRoot == "" {
			errs = append(errs, errors.New("blob root must not be empty"))
		}
	case BlobBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.BlobBackend))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
