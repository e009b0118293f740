package domain

import (
	"fmt"
	"strings"
)

// Reasons carried by FieldError.
const (
	ReasonMissing       = "missing"
	ReasonInvalidFormat = "invalid format"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// Validate reports the first required field that is blank, or nil.
// Fields are checked in a fixed order so the same payload always yields the same error.
// The event_time format is checked later, during normalization.
func Validate(s *Submission) *FieldError {
	required := []struct {
		field string
		value string
	}{
		{"client_id", s.ClientID},
		{"session_id", s.SessionID},
		{"event_time", s.EventTime},
		{"source", s.Source},
		{"event_type", s.EventType},
		{"feature_id", s.FeatureID},
	}
	for _, r := range required {
		if isBlank(r.value) {
			return &FieldError{Field: r.field, Reason: ReasonMissing}
		}
	}
	return nil
}

func isBlank(v string) bool { return strings.TrimSpace(v) == "" }
