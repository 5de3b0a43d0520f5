package domain

import "time"

// Drawing is a submitted drawing artifact. The core only keeps a reference to it.
type Drawing struct {
	PlayerID    string    `json:"playerId"`
	ArtifactURL string    `json:"artifactUrl"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewDrawing creates a new drawing reference
func NewDrawing(playerID, artifactURL string, at time.Time) *Drawing {
	return &Drawing{
		PlayerID:    playerID,
		ArtifactURL: artifactURL,
		SubmittedAt: at,
	}
}
