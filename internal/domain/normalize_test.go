package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

type stubIDs struct{ got time.Time }

func (s *stubIDs) NewID(now time.Time) string {
	s.got = now
	return "evt_" + now.Format("20060102") + "_abcdef0123"
}

var fixedNow = time.Date(2025, 1, 1, 8, 15, 0, 0, time.UTC)

func newTestNormalizer() (*Normalizer, *stubIDs) {
	ids := &stubIDs{}
	return NewNormalizer(func() time.Time { return fixedNow }, ids), ids
}

func TestNormalizeBasic(t *testing.T) {
	n, ids := newTestNormalizer()
	s := validSubmission()
	s.UserID = "u1"
	s.PageURL = "https://example.com/a"
	s.ScreenName = "Home"
	s.Environment = Environment{DeviceType: "mobile", OS: "iOS", Locale: "zh-TW"}

	rec, err := n.Normalize(s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.EventID != "evt_20250101_abcdef0123" {
		t.Errorf("EventID = %q", rec.EventID)
	}
	if !ids.got.Equal(fixedNow) {
		t.Errorf("generator saw %v, want %v", ids.got, fixedNow)
	}
	if !rec.EventTime.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EventTime = %v", rec.EventTime)
	}
	if !rec.ReceivedAt.Equal(fixedNow) || rec.ReceivedAt.Location() != time.UTC {
		t.Errorf("ReceivedAt = %v", rec.ReceivedAt)
	}
	if rec.UserID != "u1" || rec.PageURL != s.PageURL || rec.ScreenName != "Home" {
		t.Errorf("fields not copied: %+v", rec)
	}
	if rec.Environment != s.Environment {
		t.Errorf("Environment = %+v", rec.Environment)
	}
	if rec.Experiments != nil || rec.Metadata != nil {
		t.Errorf("absent maps must stay nil, got %s / %s", rec.Experiments, rec.Metadata)
	}
}

func TestNormalizeConvertsToUTC(t *testing.T) {
	n, _ := newTestNormalizer()
	s := validSubmission()
	s.EventTime = "2025-01-01T08:00:00+08:00"

	rec, err := n.Normalize(s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.EventTime.Location() != time.UTC {
		t.Fatalf("location = %v", rec.EventTime.Location())
	}
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !rec.EventTime.Equal(want) {
		t.Fatalf("EventTime = %v, want %v", rec.EventTime, want)
	}
}

func TestNormalizeInvalidEventTime(t *testing.T) {
	n, _ := newTestNormalizer()
	for _, v := range []string{"not-a-date", "2025-13-01T00:00:00Z", "01/02/2025", "1735689600"} {
		s := validSubmission()
		s.EventTime = v

		_, err := n.Normalize(s)
		var fe *FieldError
		if !errors.As(err, &fe) {
			t.Fatalf("%q: expected *FieldError, got %v", v, err)
		}
		if fe.Field != "event_time" || fe.Reason != ReasonInvalidFormat {
			t.Fatalf("%q: got %+v", v, fe)
		}
	}
}

func TestParseEventTimeLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2025-01-01T00:00:00Z":           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"2025-01-01T00:00:00.123Z":       time.Date(2025, 1, 1, 0, 0, 0, 123_000_000, time.UTC),
		"2025-01-01T00:00:00.123456789Z": time.Date(2025, 1, 1, 0, 0, 0, 123_456_000, time.UTC),
		"2025-01-01T09:00:00+09:00":      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"2025-01-01T00:00:00":            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"2025-01-01 00:00:00":            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"2025-01-01":                     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"  2025-01-01T00:00:00Z  ":       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"2024-12-31T19:00:00.5-05:00":    time.Date(2025, 1, 1, 0, 0, 0, 500_000_000, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseEventTime(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Errorf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeSerializesBlobs(t *testing.T) {
	n, _ := newTestNormalizer()
	s := validSubmission()
	s.Experiments = map[string]string{"checkout_button": "variant_b", "nav": "control"}
	s.Metadata = map[string]any{"price": 12.5, "tags": []any{"a", "b"}, "nested": map[string]any{"k": true}}

	rec, err := n.Normalize(s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := string(rec.Experiments); got != `{"checkout_button":"variant_b","nav":"control"}` {
		t.Errorf("Experiments = %s", got)
	}

	var meta map[string]any
	if err := json.Unmarshal(rec.Metadata, &meta); err != nil {
		t.Fatalf("metadata not JSON: %v", err)
	}
	if !reflect.DeepEqual(meta, s.Metadata) {
		t.Errorf("metadata = %#v, want %#v", meta, s.Metadata)
	}
}

func TestNormalizeKeepsMicroseconds(t *testing.T) {
	ids := &stubIDs{}
	clock := func() time.Time { return time.Date(2025, 1, 1, 8, 15, 9, 549_210_049, time.UTC) }
	n := NewNormalizer(clock, ids)
	s := validSubmission()
	s.EventTime = "2025-01-01T00:00:00.987654321Z"

	rec, err := n.Normalize(s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := rec.EventTime.Nanosecond(); got != 987_654_000 {
		t.Errorf("EventTime nanos = %d", got)
	}
	if got := rec.ReceivedAt.Nanosecond(); got != 549_210_000 {
		t.Errorf("ReceivedAt nanos = %d", got)
	}
	if !ids.got.Equal(rec.ReceivedAt) {
		t.Errorf("generator saw %v, record has %v", ids.got, rec.ReceivedAt)
	}
}

func TestNormalizeKeepsNumberText(t *testing.T) {
	n, _ := newTestNormalizer()
	s := validSubmission()
	s.Metadata = map[string]any{
		"order_id": json.Number("12345678901234567890"),
		"amount":   json.Number("1.10"),
	}

	rec, err := n.Normalize(s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := string(rec.Metadata); got != `{"amount":1.10,"order_id":12345678901234567890}` {
		t.Fatalf("Metadata = %s", got)
	}
}

func TestNormalizeEmptyMapsEncodeAsEmptyObject(t *testing.T) {
	n, _ := newTestNormalizer()
	s := validSubmission()
	s.Experiments = map[string]string{}

	rec, err := n.Normalize(s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if string(rec.Experiments) != "{}" {
		t.Fatalf("Experiments = %q", rec.Experiments)
	}
	if rec.Metadata != nil {
		t.Fatalf("Metadata = %q", rec.Metadata)
	}
}

func TestNormalizeUnencodableMetadata(t *testing.T) {
	n, _ := newTestNormalizer()
	s := validSubmission()
	s.Metadata = map[string]any{"ch": make(chan int)}

	_, err := n.Normalize(s)
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		t.Fatalf("serialization failure must not be a field error: %v", err)
	}
}
