package domain

// ResolutionSource names the strategy that produced a record's category.
type ResolutionSource string

const (
	SourceLabeled    ResolutionSource = "labeled"
	SourceClassifier ResolutionSource = "classifier"
	SourceFallback   ResolutionSource = "fallback"
)

// Summary is what an ingest call reports back: "ProcessedCount of
// TotalParsed transactions processed".
type Summary struct {
	UploadID       string                   `json:"upload_id,omitempty"`
	FileName       string                   `json:"file_name"`
	TotalParsed    int                      `json:"total_parsed"`
	ProcessedCount int                      `json:"processed_count"`
	FailedCount    int                      `json:"failed_count"`
	BySource       map[ResolutionSource]int `json:"by_source,omitempty"`
	DuplicateOf    string                   `json:"duplicate_of,omitempty"`
}
