// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"

	"plume/internal/models"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	// DefaultLanguage is applied to posts created without a locale.
	DefaultLanguage string `mapstructure:"DEFAULT_LANGUAGE"`

	// Engagement score weights; policy parameters, not invariants.
	EngagementWeightLikes       float64 `mapstructure:"ENGAGEMENT_WEIGHT_LIKES"`
	EngagementWeightRetweets    float64 `mapstructure:"ENGAGEMENT_WEIGHT_RETWEETS"`
	EngagementWeightViews       float64 `mapstructure:"ENGAGEMENT_WEIGHT_VIEWS"`
	EngagementWeightImpressions float64 `mapstructure:"ENGAGEMENT_WEIGHT_IMPRESSIONS"`
	EngagementWeightClicks      float64 `mapstructure:"ENGAGEMENT_WEIGHT_CLICKS"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional; environment variables and defaults
	// are enough to boot in development.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config.%s.yml: %w", env, err)
			}
		}
	}

	defaults := models.DefaultEngagementWeights()

	viper.SetDefault("PORT", "8480")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "plume")
	viper.SetDefault("DB_PASSWORD", "plume")
	viper.SetDefault("DB_NAME", "plume")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("DEFAULT_LANGUAGE", "fr")
	viper.SetDefault("ENGAGEMENT_WEIGHT_LIKES", defaults.Likes)
	viper.SetDefault("ENGAGEMENT_WEIGHT_RETWEETS", defaults.Retweets)
	viper.SetDefault("ENGAGEMENT_WEIGHT_VIEWS", defaults.Views)
	viper.SetDefault("ENGAGEMENT_WEIGHT_IMPRESSIONS", defaults.Impressions)
	viper.SetDefault("ENGAGEMENT_WEIGHT_CLICKS", defaults.Clicks)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// EngagementWeights returns the configured score weights.
func (c *Config) EngagementWeights() models.EngagementWeights {
	return models.EngagementWeights{
		Likes:       c.EngagementWeightLikes,
		Retweets:    c.EngagementWeightRetweets,
		Views:       c.EngagementWeightViews,
		Impressions: c.EngagementWeightImpressions,
		Clicks:      c.EngagementWeightClicks,
	}
}

// IsProduction reports whether the app runs with the production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if c.IsProduction() {
		if c.JWTSecret == "change-me-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "plume" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. Use SSL for database connections.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Use a stronger secret for production.")
	}

	return nil
}
