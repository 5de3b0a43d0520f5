package domain

// Team is the side that wins a round.
type Team string

const (
	TeamArtists  Team = "ARTISTS"
	TeamImpostor Team = "IMPOSTOR"
)

// String returns the string representation of the team
func (t Team) String() string {
	return string(t)
}
