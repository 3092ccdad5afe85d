package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd) //nolint:errcheck

	t.Setenv("ATTENDANCE_TODAY_LIMIT", "4")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 150, cfg.Attendance.NoteMaxLength)
	assert.Equal(t, 4, cfg.Attendance.TodayLimit)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SummaryTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestAttendanceLocationFallback(t *testing.T) {
	loc := AttendanceConfig{Timezone: "Not/AZone"}.Location()
	_, offset := time.Date(2025, 1, 6, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*60*60, offset)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("nope", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
