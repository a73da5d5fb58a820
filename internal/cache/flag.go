package cache

import (
	"encoding/json"
	"fmt"
)

// Flag is a sticky boolean. It starts Unknown and can only move to
// Confirmed; nothing moves it back.
type Flag uint8

const (
	// FlagUnknown means the property has not been observed yet
	FlagUnknown Flag = iota
	// FlagConfirmed means the property was observed and stays true
	FlagConfirmed
)

// Confirm moves the flag to Confirmed
func (f *Flag) Confirm() {
	*f = FlagConfirmed
}

// Confirmed reports whether the flag has been confirmed
func (f Flag) Confirmed() bool {
	return f == FlagConfirmed
}

// Merge returns the union of two observations of the same flag
func (f Flag) Merge(other Flag) Flag {
	if f.Confirmed() || other.Confirmed() {
		return FlagConfirmed
	}
	return FlagUnknown
}

func (f Flag) String() string {
	if f.Confirmed() {
		return "confirmed"
	}
	return "unknown"
}

// MarshalJSON stores the flag as a plain JSON boolean
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Confirmed())
}

// UnmarshalJSON accepts a JSON boolean or null
func (f *Flag) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = FlagUnknown
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("invalid flag value %s: %w", data, err)
	}
	if b {
		*f = FlagConfirmed
	} else {
		*f = FlagUnknown
	}
	return nil
}
