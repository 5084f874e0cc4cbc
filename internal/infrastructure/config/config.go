package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "TELEMETRY_CONFIG"

// DefaultPath is used when EnvConfigPath is unset.
const DefaultPath = "configs/config.yaml"

const minJWTSecretLength = 32

// Config is the root configuration for the telemetry core.
// Values come from defaults, then the YAML file, then TELEMETRY_* variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Redis    RedisConfig    `yaml:"redis"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig enables TLS on the listener.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds HTTP timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists allowed browser origins. Empty means no CORS headers.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig configures rotated file output (output: file).
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig covers tokens, passwords and the bootstrap account.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	Passwords PasswordConfig  `yaml:"passwords"`
	SeedOwner SeedOwnerConfig `yaml:"seed_owner"`
}

// JWTConfig contains session token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// AccessTokenTTL is in minutes.
	AccessTokenTTL int    `yaml:"access_token_ttl"`
	Issuer         string `yaml:"issuer"`
}

// PasswordConfig contains credential policy and Argon2id cost.
type PasswordConfig struct {
	MinLength int          `yaml:"min_length"` // 0 = no minimum
	Argon2    Argon2Config `yaml:"argon2"`
}

// Argon2Config holds Argon2id parameters. Memory is in KiB.
type Argon2Config struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"`
	Threads uint8  `yaml:"threads"`
}

// SeedOwnerConfig names the account created on first boot.
type SeedOwnerConfig struct {
	Username string `yaml:"username"`
}

// MQTTConfig contains broker settings for event announcements.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig holds reconnect delays in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains the time-series mirror settings.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
	// BatchSize and FlushInterval (ms) tune the non-blocking write API.
	BatchSize     int `yaml:"batch_size"`
	FlushInterval int `yaml:"flush_interval"`
}

// RedisConfig backs the session revocation list. When disabled an
// in-process store is used instead.
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TLS       bool   `yaml:"tls"`
}

// PathFromEnv returns the config path from TELEMETRY_CONFIG or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path, applies TELEMETRY_* overrides and
// validates the result.
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

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/telemetry.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/telemetry.log",
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
				Issuer:         "telemetry-core",
			},
			Passwords: PasswordConfig{
				MinLength: 0,
				Argon2: Argon2Config{
					Time:    3,
					Memory:  64 * 1024,
					Threads: 4,
				},
			},
			SeedOwner: SeedOwnerConfig{Username: "owner"},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "telemetry-core",
			},
			QoS:         1,
			TopicPrefix: "telemetry",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 1000,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "telemetry:revoked:",
		},
	}
}

// applyEnvOverrides maps TELEMETRY_<SECTION>_<KEY> variables onto cfg.
// Secrets should always arrive this way rather than from the file.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("TELEMETRY_DATABASE_PATH", &cfg.Database.Path)

	setString("TELEMETRY_API_HOST", &cfg.API.Host)
	setInt("TELEMETRY_API_PORT", &cfg.API.Port)

	setString("TELEMETRY_LOG_LEVEL", &cfg.Logging.Level)

	setString("TELEMETRY_JWT_SECRET", &cfg.Security.JWT.Secret)

	setBool("TELEMETRY_MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("TELEMETRY_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("TELEMETRY_MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("TELEMETRY_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("TELEMETRY_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	setBool("TELEMETRY_INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	setString("TELEMETRY_INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("TELEMETRY_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	setBool("TELEMETRY_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("TELEMETRY_REDIS_ADDR", &cfg.Redis.Addr)
	setString("TELEMETRY_REDIS_PASSWORD", &cfg.Redis.Password)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "", "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when output is file")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr or file")
	}

	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set TELEMETRY_JWT_SECRET)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}
	if c.Security.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "security.jwt.access_token_ttl must be positive")
	}
	if c.Security.Passwords.MinLength < 0 {
		errs = append(errs, "security.passwords.min_length must not be negative")
	}
	if a := c.Security.Passwords.Argon2; a.Time == 0 || a.Memory == 0 || a.Threads == 0 {
		errs = append(errs, "security.passwords.argon2 time, memory and threads must be non-zero")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb url, org and bucket are required when enabled")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// AccessTokenTTL returns the session lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// GetReadTimeout returns the API read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
