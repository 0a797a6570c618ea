package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Notification is an alert pushed over the realtime socket or listed by
// the notifications API.
type Notification struct {
	// ID is the unique identifier for this notification. The backend
	// sends it as either a string or a number.
	ID string `json:"id"`

	// Title is the short headline.
	Title string `json:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Type is the backend category (trip, payment, document...).
	Type string `json:"type,omitempty"`

	// Link optionally points at the related resource.
	Link string `json:"link,omitempty"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"is_read"`

	// CreatedDate is when this notification was generated.
	CreatedDate time.Time `json:"created_date"`
}

// timestampLayouts are tried in order; zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON accepts numeric ids and timestamps with or without a zone.
// A timestamp in none of the known layouts is left zero.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	var raw struct {
		plain
		ID          json.RawMessage `json:"id"`
		CreatedDate json.RawMessage `json:"created_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := flexibleID(raw.ID)
	if err != nil {
		return err
	}

	*n = Notification(raw.plain)
	n.ID = id
	n.CreatedDate = parseTimestamp(raw.CreatedDate)
	return nil
}

func flexibleID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("notification id %s: %w", raw, err)
	}
	return num.String(), nil
}

func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
