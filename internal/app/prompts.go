package app

import (
	"math/rand/v2"
	"slices"
	"sync"

	"sketchspy/internal/domain"
)

// DefaultPromptPairs is the built-in deck used when no database is configured.
// Each impostor prompt is close enough to the common one to be drawn plausibly.
var DefaultPromptPairs = []domain.PromptPair{
	// Animals
	{Common: "cat", Impostor: "fox"},
	{Common: "shark", Impostor: "dolphin"},
	{Common: "owl", Impostor: "penguin"},
	{Common: "horse", Impostor: "zebra"},
	{Common: "spider", Impostor: "octopus"},
	{Common: "snail", Impostor: "turtle"},

	// Food
	{Common: "pizza", Impostor: "pie"},
	{Common: "burger", Impostor: "sandwich"},
	{Common: "banana", Impostor: "cucumber"},
	{Common: "ice cream", Impostor: "cupcake"},
	{Common: "sushi", Impostor: "taco"},

	// Places
	{Common: "beach", Impostor: "desert"},
	{Common: "castle", Impostor: "church"},
	{Common: "volcano", Impostor: "mountain"},
	{Common: "lighthouse", Impostor: "rocket"},
	{Common: "bridge", Impostor: "tunnel"},

	// Objects
	{Common: "umbrella", Impostor: "parachute"},
	{Common: "guitar", Impostor: "violin"},
	{Common: "lantern", Impostor: "candle"},
	{Common: "hammer", Impostor: "axe"},
	{Common: "bicycle", Impostor: "scooter"},
	{Common: "hourglass", Impostor: "clock"},
	{Common: "compass", Impostor: "watch"},

	// Nature
	{Common: "tornado", Impostor: "wave"},
	{Common: "rainbow", Impostor: "aurora"},
	{Common: "snowman", Impostor: "scarecrow"},
	{Common: "cactus", Impostor: "palm tree"},
}

// PromptDeck is the shared, read-mostly set of prompt pairs rooms draw from
type PromptDeck struct {
	mu    sync.RWMutex
	pairs []domain.PromptPair
	intn  func(int) int
}

// NewPromptDeck creates a deck from the given pairs
func NewPromptDeck(pairs []domain.PromptPair) *PromptDeck {
	return &PromptDeck{
		pairs: slices.Clone(pairs),
		intn:  rand.IntN,
	}
}

// Replace swaps the deck contents, e.g. after loading pairs from storage
func (d *PromptDeck) Replace(pairs []domain.PromptPair) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pairs = slices.Clone(pairs)
}

// Len returns the number of pairs in the deck
func (d *PromptDeck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pairs)
}

// Draw picks a random pair not in used. Once every pair has been used the
// whole deck is eligible again.
func (d *PromptDeck) Draw(used []domain.PromptPair) (domain.PromptPair, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.pairs) == 0 {
		return domain.PromptPair{}, domain.ErrNoPrompts
	}

	candidates := make([]domain.PromptPair, 0, len(d.pairs))
	for _, p := range d.pairs {
		if !slices.Contains(used, p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = d.pairs
	}

	return candidates[d.intn(len(candidates))], nil
}
