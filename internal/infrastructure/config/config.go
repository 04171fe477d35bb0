package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/nuki-control/internal/bridges/nuki"
)

// Config is the root configuration structure for nukicontrol.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Nuki     NukiConfig     `yaml:"nuki"`
	API      APIConfig      `yaml:"api"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// BridgeConfig locates the Nuki bridge on the local network.
type BridgeConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// StateTimeout and ActionTimeout are in seconds.
	StateTimeout  int `yaml:"state_timeout"`
	ActionTimeout int `yaml:"action_timeout"`
}

// NukiConfig identifies the lock behind the bridge.
type NukiConfig struct {
	ID         string `yaml:"id"`
	DeviceType int    `yaml:"device_type"`
	// Token is the bridge API token. Prefer NUKICONTROL_NUKI_TOKEN over the file.
	Token string `yaml:"token"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Language string           `yaml:"language"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	// PanelDir serves the control page from disk instead of the embedded copy.
	PanelDir string `yaml:"panel_dir"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	// HealthInterval is the health publish interval in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite settings for the action audit log.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings. An empty secret leaves the API open.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NUKICONTROL_SECTION_KEY
// For example: NUKICONTROL_NUKI_TOKEN, NUKICONTROL_BRIDGE_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Home",
			Timezone: "Europe/Rome",
		},
		Bridge: BridgeConfig{
			Port:          8080,
			StateTimeout:  10,
			ActionTimeout: 20,
		},
		Nuki: NukiConfig{
			DeviceType: 0,
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     5000,
			Language: "en",
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "nukicontrol",
			},
			QoS:         1,
			TopicPrefix: "nukicontrol",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			HealthInterval: 30,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/nukicontrol.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("NUKICONTROL_BRIDGE_HOST"); v != "" {
		cfg.Bridge.Host = v
	}
	if v := os.Getenv("NUKICONTROL_BRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Bridge.Port = port
		}
	}

	// Nuki
	if v := os.Getenv("NUKICONTROL_NUKI_ID"); v != "" {
		cfg.Nuki.ID = v
	}
	if v := os.Getenv("NUKICONTROL_NUKI_TOKEN"); v != "" {
		cfg.Nuki.Token = v
	}

	// API
	if v := os.Getenv("NUKICONTROL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("NUKICONTROL_API_LANGUAGE"); v != "" {
		cfg.API.Language = v
	}

	// MQTT
	if v := os.Getenv("NUKICONTROL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NUKICONTROL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NUKICONTROL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("NUKICONTROL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Database
	if v := os.Getenv("NUKICONTROL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Security
	if v := os.Getenv("NUKICONTROL_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
// Error messages never include secret values.
func (c *Config) Validate() error {
	var errs []string

	// Bridge and lock identity
	if c.Bridge.Host == "" {
		errs = append(errs, "bridge.host is required")
	}
	if c.Bridge.Port < 1 || c.Bridge.Port > 65535 {
		errs = append(errs, "bridge.port must be between 1 and 65535")
	}
	if c.Bridge.StateTimeout < 1 {
		errs = append(errs, "bridge.state_timeout must be positive")
	}
	if c.Bridge.ActionTimeout < 1 {
		errs = append(errs, "bridge.action_timeout must be positive")
	}
	if c.Nuki.ID == "" {
		errs = append(errs, "nuki.id is required")
	}
	if c.Nuki.DeviceType < 0 {
		errs = append(errs, "nuki.device_type must not be negative")
	}
	if c.Nuki.Token == "" {
		errs = append(errs, "nuki.token is required (set NUKICONTROL_NUKI_TOKEN environment variable)")
	}

	// Site
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known time zone", c.Site.Timezone))
	}

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// JWT is optional, but a configured secret must not be weak.
	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Identity builds the immutable lock identity handed to the bridge client.
func (c *Config) Identity() nuki.Identity {
	return nuki.NewIdentity(c.Bridge.Host, c.Bridge.Port, c.Nuki.ID, c.Nuki.DeviceType, c.Nuki.Token)
}

// Location returns the site time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetStateTimeout returns the bridge state query timeout as a Duration.
func (c *Config) GetStateTimeout() time.Duration {
	return time.Duration(c.Bridge.StateTimeout) * time.Second
}

// GetActionTimeout returns the bridge action timeout as a Duration.
func (c *Config) GetActionTimeout() time.Duration {
	return time.Duration(c.Bridge.ActionTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
