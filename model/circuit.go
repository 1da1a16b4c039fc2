package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CircuitID identifies a power circuit. The game server emits it as a number,
// but any JSON scalar is accepted and kept as its literal text.
type CircuitID string

// UnmarshalJSON accepts a JSON number or string.
func (id *CircuitID) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	*id = CircuitID(s)
	return nil
}

// MarshalJSON writes numeric ids back as numbers.
func (id CircuitID) MarshalJSON() ([]byte, error) {
	return marshalScalar(string(id))
}

// DisplayText is a value the server pre-formats (e.g. "00:12:31").
// It is rendered verbatim.
type DisplayText string

// UnmarshalJSON accepts a JSON number or string.
func (d *DisplayText) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	*d = DisplayText(s)
	return nil
}

// CircuitRecord is one circuit's power and battery telemetry.
// MW fields are megawatts; BatteryPercent is 0-100.
type CircuitRecord struct {
	CircuitID           CircuitID   `json:"CircuitID"`
	PowerCapacity       float64     `json:"PowerCapacity"`
	PowerProduction     float64     `json:"PowerProduction"`
	PowerConsumed       float64     `json:"PowerConsumed"`
	PowerMaxConsumed    float64     `json:"PowerMaxConsumed"`
	BatteryDifferential float64     `json:"BatteryDifferential"`
	BatteryPercent      float64     `json:"BatteryPercent"`
	BatteryCapacity     float64     `json:"BatteryCapacity"`
	BatteryTimeEmpty    DisplayText `json:"BatteryTimeEmpty"`
	BatteryTimeFull     DisplayText `json:"BatteryTimeFull,omitempty"`
	FuseTriggered       bool        `json:"FuseTriggered,omitempty"`
}

// scalarText returns the display text of a JSON string or number.
func scalarText(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
	return "", fmt.Errorf("expected string or number, got %s", truncateJSON(b))
}

func marshalScalar(s string) ([]byte, error) {
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func truncateJSON(b []byte) string {
	if len(b) > 32 {
		return string(b[:29]) + "..."
	}
	return string(b)
}
