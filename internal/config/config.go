package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"vilapos/m/domain"
)

// Config holds application configuration values.
type Config struct {
	Secret           string
	DatabaseDSN      string
	HTTPPort         string
	LogMode          string
	LogFile          string
	Timezone         string
	DashboardRefresh time.Duration
	SeedOnStart      bool
	DefaultShop      string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "sabordavila.db"
	}

	mode := strings.ToLower(os.Getenv("LOG_MODE"))
	if mode != "production" {
		mode = "development"
	}

	refresh := time.Minute
	if raw := os.Getenv("DASHBOARD_REFRESH"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			log.Printf("invalid DASHBOARD_REFRESH value %q, defaulting to %s", raw, refresh)
		} else {
			refresh = d
		}
	}

	seed := false
	if raw := os.Getenv("SEED_ON_START"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			log.Printf("invalid SEED_ON_START value %q, ignoring", raw)
		}
		seed = v
	}

	shop := os.Getenv("DEFAULT_SHOP")
	if shop == "" {
		shop = domain.DefaultShopID
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Secret:           secret,
		DatabaseDSN:      dsn,
		HTTPPort:         port,
		LogMode:          mode,
		LogFile:          os.Getenv("LOG_FILE"),
		Timezone:         os.Getenv("TIMEZONE"),
		DashboardRefresh: refresh,
		SeedOnStart:      seed,
		DefaultShop:      shop,
	}
}

// Location resolves the configured timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid TIMEZONE value %q, using local time", c.Timezone)
		return time.Local
	}
	return loc
}
