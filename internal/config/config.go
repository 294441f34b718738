package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTRefreshSecret       string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	CertificateFontPath    string
	SendgridAPIKey         string
	EmailFromName          string
	EmailFromAddress       string
	StatsCacheTTL          time.Duration
	StatsAveragePrice      float64
	OutboxPollInterval     time.Duration
	EnrollmentAutoApprove  bool
	FeatureForgotPassword  bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsDevelopment reports whether the service runs in a development-like mode.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EduStack LMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("access_token_ttl", "15m")
	v.SetDefault("refresh_token_ttl", "168h")
	v.SetDefault("cloudinary.folder", "edustack/content")
	v.SetDefault("certificate.font_path", "assets/fonts/DejaVuSans.ttf")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("stats.average_price", 49.0)
	v.SetDefault("outbox.poll_interval", "10s")
	v.SetDefault("email.from_name", "EduStack")
	v.SetDefault("email.from_address", "no-reply@edustack.io")
	v.SetDefault("enrollment.auto_approve", false)
	v.SetDefault("feature.forgot_password", true)

	accessTTL, err := parseDuration(v.GetString("access_token_ttl"), "access token ttl")
	if err != nil {
		return Config{}, err
	}

	refreshTTL, err := parseDuration(v.GetString("refresh_token_ttl"), "refresh token ttl")
	if err != nil {
		return Config{}, err
	}

	statsTTL, err := parseDuration(v.GetString("stats.cache_ttl"), "stats cache ttl")
	if err != nil {
		return Config{}, err
	}

	pollInterval, err := parseDuration(v.GetString("outbox.poll_interval"), "outbox poll interval")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:         accessTTL,
		RefreshTokenTTL:        refreshTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		CertificateFontPath:    v.GetString("certificate.font_path"),
		SendgridAPIKey:         v.GetString("sendgrid_api_key"),
		EmailFromName:          v.GetString("email.from_name"),
		EmailFromAddress:       v.GetString("email.from_address"),
		StatsCacheTTL:          statsTTL,
		StatsAveragePrice:      v.GetFloat64("stats.average_price"),
		OutboxPollInterval:     pollInterval,
		EnrollmentAutoApprove:  v.GetBool("enrollment.auto_approve"),
		FeatureForgotPassword:  v.GetBool("feature.forgot_password"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.StatsAveragePrice < 0 {
		cfg.StatsAveragePrice = 0
	}

	return cfg, nil
}

func parseDuration(value, label string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("%s must not be empty", label)
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}

	return parsed, nil
}
