package scraper

import (
	"strings"
	"unicode/utf8"

	"event-scout/internal/domain/event"
)

// Validator enforces the candidate contract adapters must satisfy before
// returning candidates to the orchestrator.
type Validator struct {
	MinNameLen int
	MaxNameLen int
}

func NewValidator(minNameLen, maxNameLen int) *Validator {
	if minNameLen <= 0 {
		minNameLen = 3
	}
	if maxNameLen <= 0 {
		maxNameLen = 200
	}
	return &Validator{MinNameLen: minNameLen, MaxNameLen: maxNameLen}
}

func (v *Validator) Validate(c event.Candidate) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	// Length bounds are in characters, not bytes; multibyte names count
	// one per rune.
	runes := utf8.RuneCountInString(name)
	if runes < v.MinNameLen {
		return &ValidationError{Field: "name", Reason: "too short"}
	}
	if runes > v.MaxNameLen {
		return &ValidationError{Field: "name", Reason: "too long"}
	}
	if c.Date == nil || c.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	return nil
}
