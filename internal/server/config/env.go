package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/valutx/internal/flagx"
)

const defaultEnvFile = ".env"

// envConfig mirrors Config for environment decoding. Fields are seeded from
// the current Config so unset variables leave earlier layers intact.
type envConfig struct {
	EndpointAddrHTTP         string        `env:"VALUTX_HTTP_ADDR"`
	EndpointAddrGRPC         string        `env:"VALUTX_GRPC_ADDR"`
	DatabaseDSN              string        `env:"DATABASE_URL"`
	SecretKey                string        `env:"SECRET_KEY"`
	AccessTokenExpireMinutes int           `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	BcryptCost               int           `env:"VALUTX_BCRYPT_COST"`
	CORSOrigins              []string      `env:"CORS_ORIGINS" envSeparator:","`
	LogLevel                 string        `env:"VALUTX_LOG_LEVEL"`
	TrustedProxies           []string      `env:"VALUTX_TRUSTED_PROXIES" envSeparator:","`
	RedisAddr                string        `env:"VALUTX_REDIS_ADDR"`
	LoginFailureLimit        int           `env:"VALUTX_LOGIN_FAILURE_LIMIT"`
	LoginFailureWindow       time.Duration `env:"VALUTX_LOGIN_FAILURE_WINDOW"`
	S3RootUser               string        `env:"VALUTX_S3_USER"`
	S3RootPassword           string        `env:"VALUTX_S3_PASSWORD"`
	S3Bucket                 string        `env:"VALUTX_S3_BUCKET"`
	S3Region                 string        `env:"VALUTX_S3_REGION"`
	S3BaseEndpoint           string        `env:"VALUTX_S3_ENDPOINT"`
	ExportURLValidity        time.Duration `env:"VALUTX_EXPORT_URL_VALIDITY"`
	OTLPEndpoint             string        `env:"VALUTX_OTLP_ENDPOINT"`
}

// parseEnv overlays variables from environ onto config.
func parseEnv(config *Config, environ map[string]string) error {
	e := envConfig{
		EndpointAddrHTTP:         config.EndpointAddrHTTP,
		EndpointAddrGRPC:         config.EndpointAddrGRPC,
		DatabaseDSN:              config.DatabaseDSN,
		SecretKey:                config.SecretKey,
		AccessTokenExpireMinutes: int(config.AccessTokenValidityDuration / time.Minute),
		BcryptCost:               config.BcryptCost,
		CORSOrigins:              config.CORSOrigins,
		LogLevel:                 config.LogLevel,
		TrustedProxies:           config.TrustedProxies,
		RedisAddr:                config.RedisAddr,
		LoginFailureLimit:        config.LoginFailureLimit,
		LoginFailureWindow:       config.LoginFailureWindow,
		S3RootUser:               config.S3RootUser,
		S3RootPassword:           config.S3RootPassword,
		S3Bucket:                 config.S3Bucket,
		S3Region:                 config.S3Region,
		S3BaseEndpoint:           config.S3BaseEndpoint,
		ExportURLValidity:        config.ExportURLValidityDuration,
		OTLPEndpoint:             config.OTLPEndpoint,
	}

	if err := env.ParseWithOptions(&e, env.Options{Environment: environ}); err != nil {
		return err
	}

	config.EndpointAddrHTTP = e.EndpointAddrHTTP
	config.EndpointAddrGRPC = e.EndpointAddrGRPC
	config.DatabaseDSN = e.DatabaseDSN
	config.SecretKey = e.SecretKey
	if _, ok := environ["ACCESS_TOKEN_EXPIRE_MINUTES"]; ok {
		config.AccessTokenValidityDuration = time.Duration(e.AccessTokenExpireMinutes) * time.Minute
	}
	config.BcryptCost = e.BcryptCost
	config.CORSOrigins = e.CORSOrigins
	config.LogLevel = e.LogLevel
	config.TrustedProxies = e.TrustedProxies
	config.RedisAddr = e.RedisAddr
	config.LoginFailureLimit = e.LoginFailureLimit
	config.LoginFailureWindow = e.LoginFailureWindow
	config.S3RootUser = e.S3RootUser
	config.S3RootPassword = e.S3RootPassword
	config.S3Bucket = e.S3Bucket
	config.S3Region = e.S3Region
	config.S3BaseEndpoint = e.S3BaseEndpoint
	config.ExportURLValidityDuration = e.ExportURLValidity
	config.OTLPEndpoint = e.OTLPEndpoint
	return nil
}

// parseDotEnv applies variables from a dotenv file. The file named by
// -env-file must exist; the implicit ./.env is optional.
func parseDotEnv(config *Config, args []string) {
	path := flagx.EnvFileFlag(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return
		}
		panic(err)
	}

	if err := parseEnv(config, values); err != nil {
		panic(err)
	}
}
