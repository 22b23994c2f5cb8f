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

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  user: postgres
  dbname: studyquest
jwt:
  secret: test-secret
gamification:
  timezone: Asia/Almaty
  xp_rewards:
    week_completed: 75
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 75, cfg.Gamification.XPRewards.WeekCompleted)
	assert.Equal(t, 10, cfg.Gamification.XPRewards.ActivityCompleted, "значение по умолчанию")
	assert.Equal(t, 500, cfg.Gamification.XPRewards.StudyPlanCompleted)
	assert.Equal(t, 5*time.Minute, cfg.Gamification.StatsCacheTTL)
	assert.Equal(t, []string{"gemini-flash-latest", "gemini-2.5-flash", "gemini-2.0-flash", "gemini-pro-latest"}, cfg.LLM.Models)

	loc, err := cfg.Gamification.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Almaty", loc.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  user: postgres
  dbname: studyquest
jwt:
  secret: from-file
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("GEMINI_API_KEY", "key-123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "key-123", cfg.LLM.APIKey)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing database host",
			body: "database:\n  user: u\n  dbname: d\njwt:\n  secret: s\n",
		},
		{
			name: "missing jwt secret",
			body: "database:\n  host: h\n  user: u\n  dbname: d\n",
		},
		{
			name: "bad timezone",
			body: "database:\n  host: h\n  user: u\n  dbname: d\njwt:\n  secret: s\ngamification:\n  timezone: Mars/Olympus\n",
		},
		{
			name: "negative reward",
			body: "database:\n  host: h\n  user: u\n  dbname: d\njwt:\n  secret: s\ngamification:\n  xp_rewards:\n    video_watched: -1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
