package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_DRIVER", "FRONTEND_ORIGIN", "HOSPITABLE_WEBHOOK_SECRET", "DEBUG_ENDPOINTS"} {
		_ = os.Unsetenv(k)
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, StoreDriverFile, cfg.StoreDriver)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.FrontendOrigins)
	assert.Empty(t, cfg.WebhookSecret)
	assert.True(t, cfg.DebugEndpoints)
	assert.Equal(t, ":3000", cfg.HTTPAddr())
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("PORT", "8099")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("FRONTEND_ORIGIN", "https://a.example,https://b.example")
	t.Setenv("HOSPITABLE_WEBHOOK_SECRET", "shh")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8099, cfg.Port)
	assert.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.FrontendOrigins)
	assert.Equal(t, "shh", cfg.WebhookSecret)
}

func TestConfigLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}
