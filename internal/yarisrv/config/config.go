// Package config loads and validates the server configuration from a TOML
// file. Configuration is held in a package-level singleton accessed through
// Config(); tests install defaults via TestInit.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the supported configuration file format version.
const Version = "0.1.0"

// AuthConfig holds identity-resolution configuration. Authentication
// mechanics live in an external identity service; the server only needs
// enough to verify bearer tokens it is handed.
type AuthConfig struct {
	TokenSigningKey string `toml:"token_signing_key"` // HMAC key for verifying bearer tokens
	TokenValidity   string `toml:"token_validity"`    // validity window for tokens minted in dev mode
	TestUserToken   string `toml:"-"`                 // static token honored in test mode
}

// GetTokenValidity returns the token validity window as a time.Duration.
func (a *AuthConfig) GetTokenValidity() (time.Duration, error) {
	return time.ParseDuration(a.TokenValidity)
}

// GetTokenValidityOrDefault returns the token validity window or panics if
// the configured value is invalid.
func (a *AuthConfig) GetTokenValidityOrDefault() time.Duration {
	d, err := a.GetTokenValidity()
	if err != nil {
		panic(fmt.Sprintf("invalid token validity: %v", err))
	}
	return d
}

// RelayConfig holds tunables for the real-time relay.
type RelayConfig struct {
	WriteBufferSize  int    `toml:"write_buffer_size"`  // per-connection outbound queue length
	MaxMessageBytes  int64  `toml:"max_message_bytes"`  // largest accepted inbound frame
	PublishTimeoutMS int    `toml:"publish_timeout_ms"` // how long a publish may block on a slow subscriber
	PingInterval     string `toml:"ping_interval"`      // websocket keepalive interval
}

// GetPublishTimeout returns the bus publish timeout.
func (r *RelayConfig) GetPublishTimeout() time.Duration {
	return time.Duration(r.PublishTimeoutMS) * time.Millisecond
}

// GetPingInterval returns the websocket keepalive interval.
func (r *RelayConfig) GetPingInterval() (time.Duration, error) {
	return time.ParseDuration(r.PingInterval)
}

// MeetingConfig holds meeting-link generation configuration.
type MeetingConfig struct {
	LinkBaseURL string `toml:"link_base_url"` // URL template base for generated meeting links
}

// ConfigParam holds all configuration parameters for the server.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"` // version of this configuration file format

	ServerHostName     string `toml:"server_hostname"`       // hostname for the server
	ServerPort         string `toml:"server_port"`           // port for the HTTP listener
	HandleCORS         bool   `toml:"handle_cors"`           // whether to handle CORS
	CORSAllowedOrigins string `toml:"cors_allowed_origins"`  // comma-separated allowed origins
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // maximum request body size in bytes
	RequestTimeout     string `toml:"request_timeout"`       // per-request handling deadline
	DevMode            bool   `toml:"dev_mode"`              // echo underlying error detail in responses

	Auth    AuthConfig    `toml:"auth"`
	Relay   RelayConfig   `toml:"relay"`
	Meeting MeetingConfig `toml:"meeting"`

	DB struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		DBName   string `toml:"dbname"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		SSLMode  string `toml:"sslmode"`
	} `toml:"db"`
}

var cfg *ConfigParam
var isTest bool

// Config returns the current configuration.
func Config() *ConfigParam {
	return cfg
}

// DSN returns the database connection string.
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// GetRequestTimeout returns the per-request handling deadline.
func (c *ConfigParam) GetRequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.RequestTimeout)
}

// LoadConfig reads, parses and validates the configuration file, replacing
// the package singleton on success.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	c := &ConfigParam{}
	if _, err := toml.Decode(string(content), c); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	cfg = c
	return nil
}

// ValidateConfig checks if all required configuration values are present
// and valid, filling defaults where documented.
func ValidateConfig(c *ConfigParam) error {
	if c.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", c.FormatVersion)
	}
	if c.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if c.MaxRequestBodySize <= 0 {
		c.MaxRequestBodySize = 1 << 20
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "30s"
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %v", err)
	}
	if err := validateAuthConfig(c); err != nil {
		return err
	}
	if err := validateRelayConfig(c); err != nil {
		return err
	}
	if c.Meeting.LinkBaseURL == "" {
		c.Meeting.LinkBaseURL = "https://meet.yari.app"
	}
	if err := validateDBConfig(c); err != nil {
		return err
	}
	return nil
}

func validateAuthConfig(c *ConfigParam) error {
	if c.Auth.TokenSigningKey == "" {
		return fmt.Errorf("auth.token_signing_key is required")
	}
	if c.Auth.TokenValidity == "" {
		c.Auth.TokenValidity = "24h"
	}
	if _, err := time.ParseDuration(c.Auth.TokenValidity); err != nil {
		return fmt.Errorf("invalid auth.token_validity: %v", err)
	}
	return nil
}

func validateRelayConfig(c *ConfigParam) error {
	if c.Relay.WriteBufferSize <= 0 {
		c.Relay.WriteBufferSize = 64
	}
	if c.Relay.MaxMessageBytes <= 0 {
		c.Relay.MaxMessageBytes = 64 << 10
	}
	if c.Relay.PublishTimeoutMS <= 0 {
		c.Relay.PublishTimeoutMS = 100
	}
	if c.Relay.PingInterval == "" {
		c.Relay.PingInterval = "30s"
	}
	if _, err := time.ParseDuration(c.Relay.PingInterval); err != nil {
		return fmt.Errorf("invalid relay.ping_interval: %v", err)
	}
	return nil
}

func validateDBConfig(c *ConfigParam) error {
	if c.DB.Host == "" {
		return fmt.Errorf("db.host is required")
	}
	if c.DB.Port <= 0 {
		return fmt.Errorf("db.port must be positive")
	}
	if c.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required")
	}
	if c.DB.User == "" {
		return fmt.Errorf("db.user is required")
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	return nil
}

// IsTest reports whether the process runs under test configuration.
func IsTest() bool {
	return isTest
}

// TestInit installs an in-memory default configuration for tests. No file
// is read; tests never depend on the working directory.
func TestInit() {
	isTest = true
	cfg = &ConfigParam{
		FormatVersion:      Version,
		ServerHostName:     "localhost",
		ServerPort:         "0",
		HandleCORS:         false,
		MaxRequestBodySize: 1 << 20,
		RequestTimeout:     "10s",
		DevMode:            true,
	}
	cfg.Auth.TokenSigningKey = "test-signing-key"
	cfg.Auth.TokenValidity = "1h"
	cfg.Auth.TestUserToken = "test-user-token"
	cfg.Relay.WriteBufferSize = 16
	cfg.Relay.MaxMessageBytes = 64 << 10
	cfg.Relay.PublishTimeoutMS = 100
	cfg.Relay.PingInterval = "30s"
	cfg.Meeting.LinkBaseURL = "https://meet.yari.app"
	cfg.DB.Host = "localhost"
	cfg.DB.Port = 5432
	cfg.DB.DBName = "yari_test"
	cfg.DB.User = "yari"
	cfg.DB.SSLMode = "disable"
}
