package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8080")
	t.Setenv("MIN_PLAYERS", "3")
	t.Setenv("MAX_PLAYERS", "8")
	t.Setenv("MAX_ROUND_AGE", "10m")

	cfg := Load()
	assert.Equal(t, "0.0.0.0:8080", cfg.GetAddr())
	assert.Equal(t, 3, cfg.Game.MinPlayers)
	assert.Equal(t, 8, cfg.Game.MaxPlayers)
	assert.Equal(t, 10*time.Minute, cfg.Game.MaxRoundAge)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Session.GeneratedSecret)
	assert.Len(t, cfg.Session.Secret, 64)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("ROOM_CODE_LENGTH", "12")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DRAW_SECONDS", "not-a-number")
	t.Setenv("PROMPT_SEED_FILE", "/etc/sketchspy/prompts.json")

	cfg := Load()
	assert.Equal(t, "127.0.0.1:9000", cfg.GetAddr())
	assert.Equal(t, 8, cfg.Game.RoomCodeLength, "room code length is clamped")
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.False(t, cfg.Session.GeneratedSecret)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 120, cfg.Game.DrawSeconds)
	assert.Equal(t, "/etc/sketchspy/prompts.json", cfg.Storage.PromptSeedFile)
}
