package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret signs tokens when no secret is configured. Demo use
// only; deployments must set PICKUP_JWT_SECRET.
const DefaultJWTSecret = "makerlab-demo-secret"

// Config holds runtime configuration values for the coordination service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	// DatabaseURL empty means demo mode: an in-process SQLite database
	// seeded with sample data replaces the remote backend.
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	ChannelBase string

	JWTSecret          string
	TokenTTL           time.Duration
	AdminPassword      string
	InstructorPassword string

	SpeechAPIKey string
	SpeechModel  string
	SpeechVoice  string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	UploadMaxSizeMB     int

	AnnounceDelay time.Duration
	SSEKeepAlive  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// DemoMode reports whether the service runs on the built-in sample data
// instead of a configured backend.
func (c Config) DemoMode() bool {
	return c.DatabaseURL == ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PICKUP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "MakerLab Connect")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "makerlab")
	v.SetDefault("token.ttl", "12h")
	v.SetDefault("admin.password", "admin")
	v.SetDefault("instructor.password", "teach")
	v.SetDefault("cloudinary.folder", "makerlab/sessions")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("announce.delay", "500ms")
	v.SetDefault("sse.keepalive", "30s")

	tokenTTL, err := time.ParseDuration(v.GetString("token.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid token ttl: %w", err)
	}

	announceDelay, err := time.ParseDuration(v.GetString("announce.delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid announce delay: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("sse.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sse keepalive: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		ChannelBase:         v.GetString("channel.base"),
		JWTSecret:           v.GetString("jwt.secret"),
		TokenTTL:            tokenTTL,
		AdminPassword:       v.GetString("admin.password"),
		InstructorPassword:  v.GetString("instructor.password"),
		SpeechAPIKey:        v.GetString("speech.api_key"),
		SpeechModel:         v.GetString("speech.model"),
		SpeechVoice:         v.GetString("speech.voice"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:     v.GetInt("upload.max_size_mb"),
		AnnounceDelay:       announceDelay,
		SSEKeepAlive:        keepAlive,
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultJWTSecret
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	return cfg, nil
}
