package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sketchspy/internal/domain"
)

// ReadPromptPairs loads a JSON array of {"common","impostor"} objects
func ReadPromptPairs(path string) ([]domain.PromptPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var pairs []domain.PromptPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("%w: prompt file %s: %w", domain.ErrInvalidInput, path, err)
	}

	for i, p := range pairs {
		p.Common = strings.TrimSpace(p.Common)
		p.Impostor = strings.TrimSpace(p.Impostor)
		if p.Common == "" || p.Impostor == "" || strings.EqualFold(p.Common, p.Impostor) {
			return nil, fmt.Errorf("%w: prompt pair %d needs two different prompts", domain.ErrInvalidInput, i)
		}
		pairs[i] = p
	}
	return pairs, nil
}
