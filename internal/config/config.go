package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// ChatConfig points at the third-party conversation webhook.
type ChatConfig struct {
	WebhookURL       string        `mapstructure:"webhook_url"`
	JSONTimeout      time.Duration `mapstructure:"json_timeout"`
	MultipartTimeout time.Duration `mapstructure:"multipart_timeout"`
}

// BackendConfig points at the storage/ingestion API the chat mirrors into.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	SMSWebhookURL       string        `mapstructure:"sms_webhook_url"`
	MessengerWebhookURL string        `mapstructure:"messenger_webhook_url"`
	DocExportURL        string        `mapstructure:"doc_export_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

type GeocodeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type UploadsConfig struct {
	Type          string        `mapstructure:"type"` // s3 or local
	LocalDir      string        `mapstructure:"local_dir"`
	Endpoint      string        `mapstructure:"endpoint"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	AccessKeyID   string        `mapstructure:"access_key_id"`
	SecretKey     string        `mapstructure:"secret_key"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type StorageConfig struct {
	Type           string        `mapstructure:"type"` // disk or memory
	DataDir        string        `mapstructure:"data_dir"`
	CacheSize      int           `mapstructure:"cache_size"`
	BackupInterval time.Duration `mapstructure:"backup_interval"`
}

// SessionConfig governs the expired-session cleanup loop.
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HOMEFRONT")

	viper.SetDefault("chat.json_timeout", 15*time.Second)
	viper.SetDefault("chat.multipart_timeout", 30*time.Second)
	viper.SetDefault("backend.timeout", 10*time.Second)
	viper.SetDefault("notify.timeout", 10*time.Second)
	viper.SetDefault("geocode.timeout", 5*time.Second)
	viper.SetDefault("uploads.presign_expiry", time.Hour)
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.cache_size", 100)
	viper.SetDefault("storage.backup_interval", 24*time.Hour)
	viper.SetDefault("session.ttl", 168*time.Hour)
	viper.SetDefault("session.cleanup_interval", time.Hour)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Config file wins; fall back to plain env vars for secrets.
	if cfg.Geocode.APIKey == "" {
		cfg.Geocode.APIKey = os.Getenv("GEOCODE_API_KEY")
	}
	if cfg.Uploads.AccessKeyID == "" {
		cfg.Uploads.AccessKeyID = os.Getenv("UPLOADS_ACCESS_KEY_ID")
	}
	if cfg.Uploads.SecretKey == "" {
		cfg.Uploads.SecretKey = os.Getenv("UPLOADS_SECRET_ACCESS_KEY")
	}

	return cfg, nil
}

func Get() *Config {
	return cfg
}
