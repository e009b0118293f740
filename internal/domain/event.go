package domain

import (
	"encoding/json"
	"time"
)

// Submission is the untrusted payload a web or app client posts for one event.
type Submission struct {
	UserID      string `json:"user_id,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
	ClientID    string `json:"client_id"`
	SessionID   string `json:"session_id"`

	EventTime string `json:"event_time"`
	Source    string `json:"source"`
	EventType string `json:"event_type"`

	FeatureID   string `json:"feature_id"`
	FeatureName string `json:"feature_name,omitempty"`
	FeatureType string `json:"feature_type,omitempty"`
	Action      string `json:"action,omitempty"`

	// web context
	PageURL          string `json:"page_url,omitempty"`
	PageName         string `json:"page_name,omitempty"`
	PreviousPageURL  string `json:"previous_page_url,omitempty"`
	PreviousPageName string `json:"previous_page_name,omitempty"`

	// app context
	ScreenName         string `json:"screen_name,omitempty"`
	PreviousScreenName string `json:"previous_screen_name,omitempty"`

	Environment

	Experiments map[string]string `json:"experiments,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// Environment describes the device and runtime the event was captured on.
type Environment struct {
	DeviceType     string `json:"device_type,omitempty"`
	OS             string `json:"os,omitempty"`
	OSVersion      string `json:"os_version,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	AppVersion     string `json:"app_version,omitempty"`
	BuildNumber    string `json:"build_number,omitempty"`
	NetworkType    string `json:"network_type,omitempty"`
	Locale         string `json:"locale,omitempty"`
}

// Record is the canonical event handed to storage.
// Experiments and Metadata are pre-serialized JSON; nil means the client sent none.
// The JSON encoding of a Record is also its document shape in the search backend.
type Record struct {
	EventID string `json:"event_id"`

	UserID      string `json:"user_id,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
	ClientID    string `json:"client_id"`
	SessionID   string `json:"session_id"`

	EventTime time.Time `json:"event_time"`
	Source    string    `json:"source"`
	EventType string    `json:"event_type"`

	FeatureID   string `json:"feature_id"`
	FeatureName string `json:"feature_name,omitempty"`
	FeatureType string `json:"feature_type,omitempty"`
	Action      string `json:"action,omitempty"`

	PageURL          string `json:"page_url,omitempty"`
	PageName         string `json:"page_name,omitempty"`
	PreviousPageURL  string `json:"previous_page_url,omitempty"`
	PreviousPageName string `json:"previous_page_name,omitempty"`

	ScreenName         string `json:"screen_name,omitempty"`
	PreviousScreenName string `json:"previous_screen_name,omitempty"`

	Environment

	Experiments json.RawMessage `json:"experiments,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

