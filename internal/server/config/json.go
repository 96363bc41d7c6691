package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/valutx/internal/flagx"
	"github.com/dmitrijs2005/valutx/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Fields left out of the file keep the values of earlier layers.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  *int            `json:"bcrypt_cost"`
	CORSOrigins                 []string        `json:"cors_origins"`
	LogLevel                    *string         `json:"log_level"`
	TrustedProxies              []string        `json:"trusted_proxies"`
	RedisAddr                   *string         `json:"redis_addr"`
	LoginFailureLimit           *int            `json:"login_failure_limit"`
	LoginFailureWindow          *timex.Duration `json:"login_failure_window"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	ExportURLValidityDuration   *timex.Duration `json:"export_url_validity_duration"`
	OTLPEndpoint                *string         `json:"otlp_endpoint"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.JsonConfigFlag(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.TrustedProxies != nil {
		config.TrustedProxies = c.TrustedProxies
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.LoginFailureLimit != nil {
		config.LoginFailureLimit = *c.LoginFailureLimit
	}
	if c.LoginFailureWindow != nil {
		config.LoginFailureWindow = c.LoginFailureWindow.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.ExportURLValidityDuration != nil {
		config.ExportURLValidityDuration = c.ExportURLValidityDuration.Duration
	}
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
