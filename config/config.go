package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Rooms        RoomsConfig        `yaml:"rooms"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Push         PushConfig         `yaml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	MDNS         MDNSConfig         `yaml:"mdns"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                  int      `yaml:"port"`
	RateLimitPerSec       float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst        int      `yaml:"rate_limit_burst"`
	DeviceRateLimitPerSec float64  `yaml:"device_rate_limit_per_sec"`
	CacheTTLSeconds       int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
	SecureCookies         bool     `yaml:"secure_cookies"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres | sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// AuthConfig holds the session token settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTLHours int           `yaml:"token_ttl_hours"`
	TokenTTL      time.Duration `yaml:"-"`
}

// RoomsConfig holds invite code settings.
type RoomsConfig struct {
	InviteTTLMinutes int           `yaml:"invite_ttl_minutes"`
	InviteTTL        time.Duration `yaml:"-"`
}

// ProvisioningConfig controls the device provisioning handshake.
type ProvisioningConfig struct {
	// CredentialKey is a base64 encoded 32 byte key sealing Wi-Fi passwords at rest.
	CredentialKey        string        `yaml:"credential_key"`
	PendingTTLMinutes    int           `yaml:"pending_ttl_minutes"`
	PendingTTL           time.Duration `yaml:"-"`
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds"`
	SweepInterval        time.Duration `yaml:"-"`
}

// MQTTConfig holds the broker connection used to push appliance state to devices.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	TLS         bool   `yaml:"tls"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// InfluxDBConfig holds the time-series sink for state history.
type InfluxDBConfig struct {
	Enabled              bool   `yaml:"enabled"`
	URL                  string `yaml:"url"`
	Token                string `yaml:"token"`
	Org                  string `yaml:"org"`
	Bucket               string `yaml:"bucket"`
	BatchSize            int    `yaml:"batch_size"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
}

// MDNSConfig controls LAN advertisement of the API for devices being provisioned.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Service  string `yaml:"service"`
}

// Load reads the configuration from the given path.
// ${VAR} references in the file are expanded from the environment.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.DeviceRateLimitPerSec <= 0 {
		cfg.Server.DeviceRateLimitPerSec = 1
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour

	if cfg.Rooms.InviteTTLMinutes <= 0 {
		cfg.Rooms.InviteTTLMinutes = 10
	}
	cfg.Rooms.InviteTTL = time.Duration(cfg.Rooms.InviteTTLMinutes) * time.Minute

	// A zero pending TTL keeps pending devices forever.
	if cfg.Provisioning.PendingTTLMinutes < 0 {
		cfg.Provisioning.PendingTTLMinutes = 0
	}
	cfg.Provisioning.PendingTTL = time.Duration(cfg.Provisioning.PendingTTLMinutes) * time.Minute
	if cfg.Provisioning.SweepIntervalSeconds <= 0 {
		cfg.Provisioning.SweepIntervalSeconds = 60
	}
	cfg.Provisioning.SweepInterval = time.Duration(cfg.Provisioning.SweepIntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.MQTT.Port <= 0 {
		cfg.MQTT.Port = 1883
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "smarthome-backend"
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		cfg.MQTT.QoS = 1
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "smarthome"
	}

	if cfg.InfluxDB.BatchSize <= 0 {
		cfg.InfluxDB.BatchSize = 100
	}
	if cfg.InfluxDB.FlushIntervalSeconds <= 0 {
		cfg.InfluxDB.FlushIntervalSeconds = 10
	}

	if cfg.MDNS.Instance == "" {
		cfg.MDNS.Instance = "smarthome"
	}
	if cfg.MDNS.Service == "" {
		cfg.MDNS.Service = "_smarthome._tcp"
	}
}
