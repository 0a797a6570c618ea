package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Setting keys read by the client itself.
const (
	SettingMapboxPrimary = "mapbox_primary"
	SettingMapboxToken   = "mapbox_access_token"
)

// Setting is one remote configuration entry. Value is whatever JSON the
// backend stored.
type Setting struct {
	Key      string      `json:"key"`
	Value    interface{} `json:"value"`
	Category string      `json:"category,omitempty"`
}

// String renders the value as text; nil becomes "".
func (s Setting) String() string {
	switch v := s.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool interprets the value as a flag. Strings such as "true" and "1"
// count, since the admin UI stores some flags as text.
func (s Setting) Bool() bool {
	switch v := s.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// MapsStatus is the backend's report of configured map services.
type MapsStatus struct {
	GoogleConfigured bool `json:"google_configured"`
	MapboxConfigured bool `json:"mapbox_configured"`
}

// MapSettings are the two remote settings the map provider selector needs.
type MapSettings struct {
	MapboxPrimary bool
	MapboxToken   string
}

// SetupStep is one page of the admin setup wizard.
type SetupStep struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// SetupStatus is the progress of the admin setup wizard.
type SetupStatus struct {
	Completed   bool        `json:"completed"`
	CurrentStep string      `json:"current_step"`
	Steps       []SetupStep `json:"steps"`
}

// TestResult is the outcome of an admin integration check.
type TestResult struct {
	Delivered bool   `json:"delivered"`
	Provider  string `json:"provider"`
	Message   string `json:"message"`
}
