package utils

import "strings"

// NormalizeSpeakerRole upper-cases a speaker role so "candidate" and " CANDIDATE " match.
func NormalizeSpeakerRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// NormalizeDialogue unifies line endings and trims surrounding whitespace of a dialogue turn.
func NormalizeDialogue(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}
