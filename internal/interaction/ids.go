// Package interaction encodes and routes the colon-delimited action ids that
// interactive buttons carry, e.g. "quiz:<scopeKey>:<letter>".
package interaction

import (
	"fmt"
	"strings"

	"ham-exam-bot/internal/domain"
)

// Prefixes registered on the shared router.
const (
	PrefixAnswer = "quiz"
	PrefixStop   = "quizstop"
	PrefixStudy  = "study"
	PrefixReport = "report"
)

const sep = ":"

// AnswerID builds the id of an answer button.
func AnswerID(scopeKey, letter string) string {
	return PrefixAnswer + sep + scopeKey + sep + letter
}

// ParseAnswerID splits an answer id. The letter is taken after the last
// colon so scope keys may contain colons themselves.
func ParseAnswerID(id string) (scopeKey, letter string, err error) {
	rest, ok := strings.CutPrefix(id, PrefixAnswer+sep)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", domain.ErrMalformedInteraction, id)
	}
	i := strings.LastIndex(rest, sep)
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("%w: %q", domain.ErrMalformedInteraction, id)
	}
	return rest[:i], rest[i+1:], nil
}

// StopID builds the id of a stop button.
func StopID(scopeKey string) string {
	return PrefixStop + sep + scopeKey
}

func ParseStopID(id string) (string, error) {
	scopeKey, ok := strings.CutPrefix(id, PrefixStop+sep)
	if !ok || scopeKey == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrMalformedInteraction, id)
	}
	return scopeKey, nil
}
