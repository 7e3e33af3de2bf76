package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultMonitorInterval is the fallback interval for monitors that do not
// declare their own, in seconds.
const DefaultMonitorInterval = 30

// envPrefix is the prefix for environment variable overrides (VENTOAGENT_*).
const envPrefix = "VENTOAGENT"

// Config is the root configuration structure for the agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Status   StatusConfig   `yaml:"status"`
}

// AgentConfig contains the device identity and control-plane settings.
type AgentConfig struct {
	// Host is the control-plane base URL (e.g. "http://localhost:8000").
	Host string `yaml:"host" split_words:"true"`

	// Username is used for login and as the MQTT username.
	Username string `yaml:"username" split_words:"true"`

	// Token is the session token returned by login. It doubles as the MQTT password.
	Token string `yaml:"token" split_words:"true"`

	// DeviceName is the routing identity of this agent. Generated when empty.
	DeviceName string `yaml:"device_name" split_words:"true"`

	// MonitorInterval is the default monitor interval in seconds.
	MonitorInterval int `yaml:"monitor_interval" split_words:"true"`

	// BaseDir is the root for the filesystem actions. Defaults to the working directory.
	BaseDir string `yaml:"base_dir" split_words:"true"`

	// SkipRegisterActions disables the post-registration trigger.
	SkipRegisterActions bool `yaml:"skip_register_actions" split_words:"true"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"-"`
	QoS       int                 `yaml:"qos"`
	KeepAlive int                 `yaml:"keepalive"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
// An empty Host means "use the control-plane hostname".
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// These are derived from AgentConfig (username + token) at connect time.
type MQTTAuthConfig struct {
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// InfluxDBConfig contains the optional monitor telemetry mirror settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// StatusConfig contains the local status endpoint settings.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// envOverrides mirrors the subset of settings that may come from the environment.
// Agent fields use split_words so only the prefixed names are consulted.
type envOverrides struct {
	AgentConfig
	LogLevel      string `envconfig:"LOG_LEVEL"`
	MQTTHost      string `envconfig:"MQTT_HOST"`
	MQTTPort      int    `envconfig:"MQTT_PORT"`
	InfluxDBToken string `envconfig:"INFLUXDB_TOKEN"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (a missing or unreadable file keeps the defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern VENTOAGENT_KEY, for example
// VENTOAGENT_HOST, VENTOAGENT_TOKEN, VENTOAGENT_MQTT_HOST.
//
// The returned config is normalised but not validated: CLI overrides and
// interactive prompts may still fill required fields before Validate is called.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg := defaultConfig()
		if yamlErr := yaml.Unmarshal(data, fileCfg); yamlErr == nil {
			cfg = fileCfg
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with mode 0600.
func Save(path string, cfg *Config) error {
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			MonitorInterval: DefaultMonitorInterval,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Port: 1883,
			},
			QoS:       1,
			KeepAlive: 30,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     30,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Status: StatusConfig{
			Listen: "127.0.0.1:8765",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Only variables that are actually set replace file values.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return err
	}

	if env.AgentConfig.Host != "" {
		cfg.Agent.Host = env.AgentConfig.Host
	}
	if env.AgentConfig.Username != "" {
		cfg.Agent.Username = env.AgentConfig.Username
	}
	if env.AgentConfig.Token != "" {
		cfg.Agent.Token = env.AgentConfig.Token
	}
	if env.AgentConfig.DeviceName != "" {
		cfg.Agent.DeviceName = env.AgentConfig.DeviceName
	}
	if env.AgentConfig.MonitorInterval > 0 {
		cfg.Agent.MonitorInterval = env.AgentConfig.MonitorInterval
	}
	if env.AgentConfig.BaseDir != "" {
		cfg.Agent.BaseDir = env.AgentConfig.BaseDir
	}
	if env.AgentConfig.SkipRegisterActions {
		cfg.Agent.SkipRegisterActions = true
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.MQTTHost != "" {
		cfg.MQTT.Broker.Host = env.MQTTHost
	}
	if env.MQTTPort > 0 {
		cfg.MQTT.Broker.Port = env.MQTTPort
	}
	if env.InfluxDBToken != "" {
		cfg.InfluxDB.Token = env.InfluxDBToken
	}
	return nil
}

// Overrides holds values supplied on the command line. Zero values are ignored.
type Overrides struct {
	Host            string
	Username        string
	DeviceName      string
	Token           string
	MonitorInterval int
}

// ApplyOverrides applies non-empty command-line values on top of the loaded config.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Host != "" {
		c.Agent.Host = o.Host
	}
	if o.Username != "" {
		c.Agent.Username = o.Username
	}
	if o.DeviceName != "" {
		c.Agent.DeviceName = o.DeviceName
	}
	if o.Token != "" {
		c.Agent.Token = o.Token
	}
	if o.MonitorInterval > 0 {
		c.Agent.MonitorInterval = o.MonitorInterval
	}
	c.Normalize()
}

// Normalize trims values, adds a scheme to the host and restores defaults
// for out-of-range numbers.
func (c *Config) Normalize() {
	c.Agent.Host = strings.TrimSpace(c.Agent.Host)
	if c.Agent.Host != "" && !strings.HasPrefix(c.Agent.Host, "http://") && !strings.HasPrefix(c.Agent.Host, "https://") {
		c.Agent.Host = "http://" + c.Agent.Host
	}
	c.Agent.Host = strings.TrimRight(c.Agent.Host, "/")
	c.Agent.Username = strings.TrimSpace(c.Agent.Username)
	c.Agent.Token = strings.TrimSpace(c.Agent.Token)
	c.Agent.DeviceName = strings.TrimSpace(c.Agent.DeviceName)
	if c.Agent.MonitorInterval <= 0 {
		c.Agent.MonitorInterval = DefaultMonitorInterval
	}
	if c.MQTT.Broker.Port <= 0 {
		c.MQTT.Broker.Port = 1883
	}
	if c.MQTT.KeepAlive <= 0 {
		c.MQTT.KeepAlive = 30
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Agent.Host == "" {
		errs = append(errs, "agent.host is required")
	}
	if c.Agent.Username == "" {
		errs = append(errs, "agent.username is required")
	}
	if c.Agent.DeviceName == "" {
		errs = append(errs, "agent.device_name is required")
	} else if strings.ContainsAny(c.Agent.DeviceName, "/+#") {
		errs = append(errs, "agent.device_name must not contain '/', '+' or '#'")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Status.Enabled && c.Status.Listen == "" {
		errs = append(errs, "status.listen is required when status is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetMonitorInterval returns the default monitor interval as a Duration.
func (c *Config) GetMonitorInterval() time.Duration {
	return time.Duration(c.Agent.MonitorInterval) * time.Second
}

var hostnameCleaner = regexp.MustCompile(`[^a-z0-9_]+`)

// GenerateDeviceName derives a device name from the hostname plus four random
// hex characters, e.g. "raspberrypi_3fa1".
func GenerateDeviceName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "device"
	}
	host = strings.Trim(hostnameCleaner.ReplaceAllString(strings.ToLower(host), "_"), "_")
	if host == "" {
		host = "device"
	}

	suffix := make([]byte, 2)
	if _, err := rand.Read(suffix); err != nil {
		return host + "_0000"
	}
	return host + "_" + hex.EncodeToString(suffix)
}
