// Package config builds the immutable server configuration from defaults,
// an optional dotenv file, an optional JSON file, the process environment
// and command-line flags, in that order of increasing precedence.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// InsecureDefaultSecret is the placeholder signing secret shipped with the
// defaults. Running with it is a deployment misconfiguration.
const InsecureDefaultSecret = "CHANGE_THIS_TO_A_SECURE_RANDOM_KEY_IN_PRODUCTION"

// MinSecretLength is the shortest HS256 secret accepted without a warning.
const MinSecretLength = 32

// Config holds runtime settings for the ValutX server. It is built once at
// startup and passed by pointer; nothing mutates it afterwards.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string
	DatabaseDSN      string

	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	BcryptCost                  int

	CORSOrigins []string
	LogLevel    string

	// TrustedProxies are peer addresses or CIDR prefixes whose
	// X-Forwarded-For header is believed. Empty means the peer address
	// is always recorded.
	TrustedProxies []string

	RedisAddr          string
	LoginFailureLimit  int
	LoginFailureWindow time.Duration

	S3RootUser                string
	S3RootPassword            string
	S3Bucket                  string
	S3Region                  string
	S3BaseEndpoint            string
	ExportURLValidityDuration time.Duration

	OTLPEndpoint string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = "sqlite://valutx.db"
	c.SecretKey = InsecureDefaultSecret
	c.AccessTokenValidityDuration = 8 * 24 * time.Hour
	c.BcryptCost = 12
	c.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	c.LogLevel = "info"
	c.LoginFailureLimit = 5
	c.LoginFailureWindow = 15 * time.Minute
	c.S3Region = "us-east-1"
	c.ExportURLValidityDuration = 15 * time.Minute
}

// Warnings reports settings that work but should never reach production.
func (c *Config) Warnings() []string {
	var w []string
	switch {
	case c.SecretKey == "":
		w = append(w, "signing secret is empty")
	case c.SecretKey == InsecureDefaultSecret:
		w = append(w, "signing secret is the insecure default; set SECRET_KEY")
	case len(c.SecretKey) < MinSecretLength:
		w = append(w, "signing secret is shorter than 32 bytes")
	}
	if c.AccessTokenValidityDuration <= 0 {
		w = append(w, "access token validity is not positive; tokens expire immediately")
	}
	return w
}

// LoadConfig builds a Config from the process arguments and environment.
// Malformed input panics, as there is nothing sensible to start with.
func LoadConfig() *Config {
	return load(os.Args[1:], env.ToMap(os.Environ()))
}

func load(args []string, environ map[string]string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseDotEnv(cfg, args)
	parseJson(cfg, args)
	if err := parseEnv(cfg, environ); err != nil {
		panic(err)
	}
	parseFlags(cfg, args)
	return cfg
}
