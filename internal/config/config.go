// Package config loads s2stats settings from defaults, an optional YAML file,
// S2STATS_* environment variables and bound command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pable/s2-analytics/internal/rolling"
)

// EnvPrefix prefixes every environment override, e.g. S2STATS_LOG_LEVEL.
const EnvPrefix = "S2STATS"

type Settings struct {
	DB  string `mapstructure:"db" validate:"required"`
	Log struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=console json"`
	} `mapstructure:"log"`
	Weapons struct {
		Primary   []string `mapstructure:"primary" validate:"min=1,dive,required"`
		Secondary []string `mapstructure:"secondary" validate:"dive,required"`
	} `mapstructure:"weapons"`
	Import struct {
		Days     int    `mapstructure:"days" validate:"gte=1"`
		Workers  int    `mapstructure:"workers" validate:"gte=1,lte=64"`
		Playlist string `mapstructure:"playlist"`
	} `mapstructure:"import"`
	Fetch struct {
		BaseURL   string  `mapstructure:"base_url" validate:"required,url"`
		RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
		Workers   int     `mapstructure:"workers" validate:"gte=1,lte=16"`
	} `mapstructure:"fetch"`
	Trend rolling.Period `mapstructure:"trend"`
	Serve struct {
		Addr        string   `mapstructure:"addr" validate:"required"`
		CORSOrigins []string `mapstructure:"cors_origins"`
		// RateLimit is requests per second across all clients. 0 disables it.
		RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
		Burst     int     `mapstructure:"burst" validate:"gte=0"`
	} `mapstructure:"serve"`
	Analyze struct {
		Model  string `mapstructure:"model" validate:"required"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"analyze"`
}

// Groups returns the weapon groups usage ratios are computed over.
func (s *Settings) Groups() [][]string {
	groups := [][]string{s.Weapons.Primary}
	if len(s.Weapons.Secondary) > 0 {
		groups = append(groups, s.Weapons.Secondary)
	}
	return groups
}

// Dir is the default directory for the database and config file.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".s2stats"
	}
	return filepath.Join(home, ".s2stats")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", filepath.Join(Dir(), "s2.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("weapons.primary", []string{
		"Deagles", "MP5", "SteyrAUG", "Kalashnikov", "Spas12", "M79",
		"Dragunov", "Barrett", "RocketLauncher", "Rheinmetall", "Minigun",
	})
	v.SetDefault("weapons.secondary", []string{"Chainsaw", "Knife", "Makarov", "RPG"})

	v.SetDefault("import.days", 35)
	v.SetDefault("import.workers", 4)
	v.SetDefault("import.playlist", "CTF")

	v.SetDefault("fetch.base_url", "http://78.47.147.210:9000")
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("fetch.workers", 2)

	v.SetDefault("trend.window_days", 10)
	v.SetDefault("trend.periods_visible", 3.0)
	v.SetDefault("trend.required_ratio", 0.5)

	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.cors_origins", []string{"*"})
	v.SetDefault("serve.rate_limit", 20.0)
	v.SetDefault("serve.burst", 40)

	v.SetDefault("analyze.model", "claude-haiku-4-5-20251001")
}

// Load reads configFile (or config.yaml under Dir when empty) over the
// defaults. A missing default file is not an error, a missing explicit one is.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// ANTHROPIC_API_KEY is honoured when no s2stats-specific key is set.
	_ = v.BindEnv("analyze.api_key", EnvPrefix+"_ANALYZE_API_KEY", "ANTHROPIC_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field constraints.
func Validate(s *Settings) error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDotEnv loads the first readable .env file among paths into the
// process environment. Existing variables win.
func LoadDotEnv(paths ...string) string {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}
