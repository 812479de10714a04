package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bodypace/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-driver", "-s", "-t", "-cost", "-blob", "-root",
	"-u", "-p", "-b", "-g", "-e", "-prefix", "-max-upload", "-l", "-openapi",
	"-only-generate-openapi-spec", "--only-generate-openapi-spec",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g., ":8080")
//	-driver string   database driver, "sqlite" or "pgx"
//	-d string        database DSN
//	-s string        JWT HMAC secret key
//	-t int           access token validity, minutes
//	-cost int        bcrypt cost
//	-blob string     blob backend, "fs" or "s3"
//	-root string     blob root directory for the fs backend
//	-u string        S3 root user
//	-p string        S3 root password
//	-b string        S3 bucket name
//	-g string        S3 region
//	-e string        S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-prefix string   S3 key prefix
//	-max-upload int  upload size limit, bytes
//	-l string        log level
//	-openapi string  OpenAPI document output path
//	-only-generate-openapi-spec
//	                 write the OpenAPI document and exit
//
// os.Args is filtered to these flags first so -c/-config and flags owned by
// other components do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (sqlite|pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.IntVar(&config.PasswordHashCost, "cost", config.PasswordHashCost, "bcrypt cost")
	fs.StringVar(&config.BlobBackend, "blob", config.BlobBackend, "blob backend (fs|s3)")
	fs.StringVar(&config.BlobRoot, "root", config.BlobRoot, "blob root directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3KeyPrefix, "prefix", config.S3KeyPrefix, "S3 key prefix")
	fs.Int64Var(&config.MaxUploadBytes, "max-upload", config.MaxUploadBytes, "upload size limit (bytes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.OpenAPIPath, "openapi", config.OpenAPIPath, "OpenAPI document output path")
	fs.BoolVar(&config.OnlyGenerateOpenAPI, "only-generate-openapi-spec", config.OnlyGenerateOpenAPI, "write the OpenAPI document and exit")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
