package domain

// PromptPair is the pair of prompts dealt for one round: everyone draws
// Common except the impostor, who draws Impostor.
type PromptPair struct {
	Common   string `json:"common"`
	Impostor string `json:"impostor"`
}
