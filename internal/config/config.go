// Package config loads runtime configuration from file and
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Insitu   InsituConfig
	Frost    FrostConfig
	NorKyst  NorKystConfig
	Forecast ForecastConfig
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port           int
	GinMode        string // debug, release, test
	AllowedOrigins string // comma-separated CORS origins, empty allows all
}

// InsituConfig holds the buoy observation service settings.
type InsituConfig struct {
	BaseURL string
}

// FrostConfig holds the land station observation service settings.
type FrostConfig struct {
	BaseURL  string
	ClientID string
}

// NorKystConfig holds the ocean model archive settings.
type NorKystConfig struct {
	// FileTemplate is the daily file URL with a {date} placeholder
	// expanded as YYYYMMDD.
	FileTemplate string
}

// ForecastConfig holds the post-processed weather forecast archive
// settings. Same {date} template convention as the ocean model.
type ForecastConfig struct {
	FileTemplate string
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ginmode", "release")
	v.SetDefault("server.allowedorigins", "")
	v.SetDefault("insitu.baseurl", "https://havvarsel-frost.met.no")
	v.SetDefault("frost.baseurl", "https://frost.met.no")
	v.SetDefault("frost.clientid", "")
	v.SetDefault("norkyst.filetemplate",
		"https://thredds.met.no/thredds/dodsC/fou-hi/norkyst800m-1h/NorKyst-800m_ZDEPTHS_his.an.{date}00.nc")
	v.SetDefault("forecast.filetemplate",
		"https://thredds.met.no/thredds/dodsC/metpparchive/met_analysis_1_0km_nordic_{date}.nc")

	v.SetEnvPrefix("SEASERIES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, the defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ServerAddr returns the server address in the format ":port".
func (c *Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
