package pipeline

import "time"

// Default values for ingestion. The API and CLI override them from config.
const (
	// DefaultClassifyTimeout bounds a single classifier call.
	DefaultClassifyTimeout = 10 * time.Second

	// DefaultFileName is used when the caller does not name the upload.
	DefaultFileName = "upload.csv"

	// minFields is the fewest fields a data line may have before it is
	// dropped as malformed.
	minFields = 3

	// maxErrorMessageLen caps the error text stored on a failed upload.
	maxErrorMessageLen = 2000
)

// DefaultFallbackCategories are the catch-all names tried, in order, when no
// other strategy resolves a record.
var DefaultFallbackCategories = []string{"outros", "other"}
