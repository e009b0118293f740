package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator mints a new event id for the given instant.
type IDGenerator interface {
	NewID(now time.Time) string
}

// Normalizer turns a validated Submission into a Record.
// Its only side effects are the reads of Clock and IDGenerator.
type Normalizer struct {
	now Clock
	ids IDGenerator
}

func NewNormalizer(now Clock, ids IDGenerator) *Normalizer {
	return &Normalizer{now: now, ids: ids}
}

// Resolution is the precision kept for event_time and received_at, matching
// what a postgres TIMESTAMPTZ column can hold.
const Resolution = time.Microsecond

// accepted event_time layouts, tried in order. Layouts without an offset are read as UTC.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseEventTime parses an ISO-8601 timestamp and returns it in UTC,
// truncated to Resolution.
func ParseEventTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().Truncate(Resolution), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse event_time %q: not ISO-8601", v)
}

// Normalize builds the canonical Record. A bad event_time yields a *FieldError;
// any other error means the submission could not be serialized.
func (n *Normalizer) Normalize(s *Submission) (Record, error) {
	eventTime, err := ParseEventTime(s.EventTime)
	if err != nil {
		return Record{}, &FieldError{Field: "event_time", Reason: ReasonInvalidFormat}
	}

	experiments, err := encodeBlob(s.Experiments)
	if err != nil {
		return Record{}, fmt.Errorf("encode experiments: %w", err)
	}
	metadata, err := encodeBlob(s.Metadata)
	if err != nil {
		return Record{}, fmt.Errorf("encode metadata: %w", err)
	}

	now := n.now().UTC().Truncate(Resolution)
	return Record{
		EventID:            n.ids.NewID(now),
		UserID:             s.UserID,
		AnonymousID:        s.AnonymousID,
		ClientID:           s.ClientID,
		SessionID:          s.SessionID,
		EventTime:          eventTime,
		Source:             s.Source,
		EventType:          s.EventType,
		FeatureID:          s.FeatureID,
		FeatureName:        s.FeatureName,
		FeatureType:        s.FeatureType,
		Action:             s.Action,
		PageURL:            s.PageURL,
		PageName:           s.PageName,
		PreviousPageURL:    s.PreviousPageURL,
		PreviousPageName:   s.PreviousPageName,
		ScreenName:         s.ScreenName,
		PreviousScreenName: s.PreviousScreenName,
		Environment:        s.Environment,
		Experiments:        experiments,
		Metadata:           metadata,
		ReceivedAt:         now,
	}, nil
}

// encodeBlob returns compact JSON for m, or nil when m is nil.
func encodeBlob[M ~map[string]V, V any](m M) (json.RawMessage, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
