package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for key, value := range values {
		original, had := os.LookupEnv(key)
		os.Setenv(key, value)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{
		"GO_ENV":               "test",
		"DATABASE_URL":         "postgresql://localhost/linen_ops_test",
		"TIMEZONE":             "America/Puerto_Rico",
		"ALERT_SMS_RECIPIENTS": "+17875550100, +17875550101",
		"MIGRATIONS":           "true",
	})

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsTest())
	assert.True(t, cfg.UseSQLMigrations)
	assert.Equal(t, []string{"+17875550100", "+17875550101"}, cfg.AlertRecipients)
	assert.Equal(t, "@every 1h", cfg.AlertSchedule)
	assert.Same(t, cfg, GetConfig(), "Load should register the config")
	assert.Equal(t, "America/Puerto_Rico", cfg.Location().String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing database url outside test", Config{GoEnv: "production", Timezone: "UTC"}, true},
		{"missing database url in test", Config{GoEnv: "test", Timezone: "UTC"}, false},
		{"invalid timezone", Config{GoEnv: "test", Timezone: "Mars/Olympus"}, true},
		{"complete", Config{GoEnv: "production", DatabaseURL: "postgres://x", Timezone: "UTC"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	var cfg *Config
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, time.UTC, (&Config{Timezone: "nope/nope"}).Location())
}

func TestTwilioEnabled(t *testing.T) {
	cfg := &Config{TwilioAccountSID: "AC1", TwilioAuthToken: "tok", TwilioFromNumber: "+1"}
	assert.False(t, cfg.TwilioEnabled(), "recipients are required")
	cfg.AlertRecipients = []string{"+2"}
	assert.True(t, cfg.TwilioEnabled())
}
