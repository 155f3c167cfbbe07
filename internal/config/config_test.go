package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 15, cfg.ReconcileEvery)
	assert.Empty(t, cfg.SiteAdmins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("CALENDAR_RECONCILE_MINUTES", "5")
	t.Setenv("SITE_ADMINS", "root@lab.example, ops@lab.example")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.ReconcileEvery)
	assert.Equal(t, []string{"root@lab.example", "ops@lab.example"}, cfg.SiteAdmins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("CALENDAR_RECONCILE_MINUTES", "soon")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 15, cfg.ReconcileEvery)
}
