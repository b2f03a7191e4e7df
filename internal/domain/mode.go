package domain

import (
	"fmt"
	"strings"
)

// Mode selects how categories are resolved for an upload.
type Mode string

const (
	// ModeLabeled trusts the file's own category column.
	ModeLabeled Mode = "labeled"
	// ModeInferred asks the classifier for every row.
	ModeInferred Mode = "inferred"
)

// ParseMode accepts "labeled", "inferred" and the legacy alias "ai".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "labeled", "labelled":
		return ModeLabeled, nil
	case "inferred", "ai":
		return ModeInferred, nil
	default:
		return "", fmt.Errorf("%w: unknown analysis mode %q", ErrMalformedInput, s)
	}
}
