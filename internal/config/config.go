// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to run. Every field has a
// default so a bare environment still yields a working dev setup.
type Config struct {
	Addr      string
	DataDir   string
	StaticDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CalendarBaseURL string
	CalendarToken   string
	ReconcileEvery  int // minutes

	SiteAdmins []string
}

// Load reads configuration from the environment, first merging in a
// .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:      getEnv("ADDR", ":8080"),
		DataDir:   getEnv("DATA_DIR", "./data"),
		StaticDir: getEnv("STATIC_DIR", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),

		CalendarBaseURL: getEnv("CALENDAR_BASE_URL", ""),
		CalendarToken:   getEnv("CALENDAR_TOKEN", ""),
		ReconcileEvery:  getEnvInt("CALENDAR_RECONCILE_MINUTES", 15),

		SiteAdmins: getEnvList("SITE_ADMINS"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getEnvList splits a comma-separated variable, trimming blanks.
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
