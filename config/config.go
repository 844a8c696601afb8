package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`

	// "mongo" or "memory"
	Store         string `mapstructure:"store"`
	MongoURI      string `mapstructure:"mongodb_uri"`
	MongoDatabase string `mapstructure:"mongodb_database"`

	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTTTLHours int    `mapstructure:"jwt_ttl_hours"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	CloudinaryURL string `mapstructure:"cloudinary_url"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string `mapstructure:"google_redirect_url"`

	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	VAPIDSubject    string `mapstructure:"vapid_subject"`

	CORSOrigins    string  `mapstructure:"cors_origins"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

var keys = []string{
	"port", "gin_mode", "store", "mongodb_uri", "mongodb_database",
	"jwt_secret", "jwt_ttl_hours", "redis_addr", "redis_password", "redis_db",
	"cloudinary_url", "google_client_id", "google_client_secret", "google_redirect_url",
	"vapid_public_key", "vapid_private_key", "vapid_subject",
	"cors_origins", "rate_limit_rps", "rate_limit_burst",
}

// Load reads an optional .env file and then the process environment.
// Environment variables are the upper-cased keys, e.g. MONGODB_URI.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("store", "mongo")
	v.SetDefault("mongodb_uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongodb_database", "edunet")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl_hours", 24)
	v.SetDefault("redis_db", 0)
	v.SetDefault("google_redirect_url", "http://localhost:8080/api/auth/google/callback")
	v.SetDefault("vapid_subject", "mailto:admin@edunet.local")
	v.SetDefault("cors_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("rate_limit_burst", 40)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Release() bool { return c.GinMode == "release" }

func (c *Config) JWTTTL() time.Duration { return time.Duration(c.JWTTTLHours) * time.Hour }

func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate rejects configurations that are unsafe to serve in release mode.
func (c *Config) Validate() error {
	if c.Store != "mongo" && c.Store != "memory" {
		return errors.New("STORE must be mongo or memory")
	}
	if c.Release() {
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET must be set in release mode")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET should be at least 32 characters")
		}
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "edunet-development-secret-change-me"
	}
	if c.JWTTTLHours <= 0 {
		c.JWTTTLHours = 24
	}
	return nil
}
