package http

import (
	"regexp"
	"strings"
	"unicode"

	"quiz-arena-service/internal/domain"
)

const (
	minNameLength = 2
	maxNameLength = 20
	maxBetAmount  = 10000
)

var roomIDPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// validatePlayerName trims the name and enforces the 2-20 printable-character
// contract before anything reaches core state.
func validatePlayerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) < minNameLength || len(name) > maxNameLength {
		return "", domain.ErrInvalidInput
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return "", domain.ErrInvalidInput
		}
	}
	return name, nil
}

func validateBetAmount(bet int) error {
	if bet < 0 || bet > maxBetAmount {
		return domain.ErrInvalidInput
	}
	return nil
}

func validateRoomID(id string) error {
	if !roomIDPattern.MatchString(id) {
		return domain.ErrInvalidInput
	}
	return nil
}
