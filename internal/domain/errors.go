package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated means the caller identity is missing or invalid.
	ErrUnauthenticated = errors.New("unauthorized")

	// ErrMalformedInput means the ingest payload itself is unusable.
	ErrMalformedInput = errors.New("malformed input")

	// ErrClassificationUnavailable is returned by classifiers on timeout,
	// transport failure or an unusable response. It never leaves the resolver.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrVocabularyUnavailable means categories could not be loaded, so no
	// record of the batch can be resolved.
	ErrVocabularyUnavailable = errors.New("category vocabulary unavailable")

	// ErrNotFound is returned by store lookups that match nothing.
	ErrNotFound = errors.New("not found")
)

// FormatError reports that the file lacks a mandatory column.
type FormatError struct {
	Missing []string
}

func (e *FormatError) Error() string {
	if len(e.Missing) == 0 {
		return "invalid file format: no header row"
	}
	return fmt.Sprintf("invalid file format: missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// IsPermanent reports whether retrying the same ingest call can never succeed.
func IsPermanent(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrMalformedInput)
}
