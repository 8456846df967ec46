package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// FetchInterval controls how often every airport is refreshed.
	FetchInterval time.Duration
	// FetchTimeout bounds one refresh cycle, all sources included.
	FetchTimeout time.Duration

	// In-memory store retention.
	StoreMaxHistory int           // max number of fused snapshots per airport (0 = unlimited)
	StoreMaxAge     time.Duration // max age of fused snapshots (0 = unlimited)

	// Airports to track, loaded from AirportsFile.
	AirportsFile string
	Airports     []AirportConfig

	// Downstream publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	TempestToken  string
	SynopticToken string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.TempestToken = os.Getenv("TEMPEST_TOKEN")
	cfg.SynopticToken = os.Getenv("SYNOPTIC_TOKEN")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 1440) // 24h at one-minute cycles

	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = parseList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "fused-weather")

	cfg.AirportsFile = getenvDefault("AIRPORTS_FILE", "configs/airports.yaml")
	airports, err := LoadAirports(cfg.AirportsFile)
	if err != nil {
		return nil, err
	}
	cfg.Airports = airports

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
