package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchspy/internal/domain"
	"sketchspy/internal/storage"
)

func writePromptFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadPromptPairs(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writePromptFile(t, `[{"common":" river ","impostor":"road"},{"common":"moon","impostor":"cookie"}]`)
		pairs, err := storage.ReadPromptPairs(path)
		require.NoError(t, err)
		assert.Equal(t, []domain.PromptPair{
			{Common: "river", Impostor: "road"},
			{Common: "moon", Impostor: "cookie"},
		}, pairs)
	})

	t.Run("invalid entries", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"not json", `common=cat`},
			{"missing impostor", `[{"common":"cat"}]`},
			{"same prompt twice", `[{"common":"Cat","impostor":"cat"}]`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := storage.ReadPromptPairs(writePromptFile(t, tt.body))
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := storage.ReadPromptPairs(filepath.Join(t.TempDir(), "none.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
