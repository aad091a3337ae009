package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  redis:
    address: localhost:6379
  postgres:
    host: localhost
    database: leads
    user: intake
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "lead-intake", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "intake", cfg.Wizard.KeyPrefix)
	assert.Equal(t, 4000, cfg.Wizard.NotificationTTL)
	assert.True(t, cfg.Wizard.StrictNavigation)
	assert.True(t, cfg.Voice.Enabled)
	assert.Equal(t, "ses", cfg.Notifications.Email.Provider)
	assert.Equal(t, "BR", cfg.Notifications.DefaultCountry)
	assert.False(t, cfg.Pipeline.ContinueOnScoringFailure)
	assert.False(t, cfg.Database.Elasticsearch.Enabled())
}

func TestLoadFromFile_ExplicitFalseIsKept(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
wizard:
  strict_navigation: false
voice:
  enabled: false
`))
	require.NoError(t, err)

	assert.False(t, cfg.Wizard.StrictNavigation)
	assert.False(t, cfg.Voice.Enabled)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_GENAI_KEY", "secret-key")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
apis:
  genai:
    api_key: "${TEST_GENAI_KEY}"
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.APIs.GenAI.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing redis",
			body: "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			want: "database.redis.address is required",
		},
		{
			name: "missing postgres host",
			body: "database:\n  redis:\n    address: a\n  postgres:\n    database: d\n    user: u\n",
			want: "database.postgres.host is required",
		},
		{
			name: "unknown email provider",
			body: minimalConfig + "notifications:\n  email:\n    provider: pigeon\n",
			want: "notifications.email.provider",
		},
		{
			name: "whatsapp without number",
			body: minimalConfig + "notifications:\n  whatsapp:\n    enabled: true\n",
			want: "staff_number is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 4*time.Second, GetDuration(4000))
}
