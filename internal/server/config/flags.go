package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/valutx/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
//	-a string   HTTP bind address (":8000")
//	-r string   gRPC bind address (":50051", empty disables)
//	-d string   database DSN (sqlite://path or postgres://...)
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-k int      bcrypt cost
//	-u string   S3 user
//	-p string   S3 password
//	-b string   S3 bucket
//	-n string   S3 region
//	-e string   S3 endpoint
//	-x string   Redis address for login throttling
//	-o string   OTLP/HTTP trace endpoint
//	-v string   log level
//
// Only these flags are looked at, so -c and -env-file can sit alongside.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-r", "-d", "-s", "-t", "-k", "-u", "-p", "-b", "-n", "-e", "-x", "-o", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenMinutes := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access token validity (in minutes)")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "n", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 endpoint")
	fs.StringVar(&config.RedisAddr, "x", config.RedisAddr, "redis address")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP endpoint")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	tokenFlagSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			tokenFlagSet = true
		}
	})
	if tokenFlagSet {
		config.AccessTokenValidityDuration = time.Duration(*accessTokenMinutes) * time.Minute
	}
}
