package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/jobs"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
)

// MaxUploadBytes caps the ingest request body.
const MaxUploadBytes = 10 << 20

// Ingestor runs one ingestion call.
type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (domain.Summary, error)
}

// IngestHandler handles file ingestion endpoints.
type IngestHandler struct {
	ingestor  Ingestor
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewIngestHandler creates a new ingest handler. publisher may be nil, in
// which case background ingestion is unavailable.
func NewIngestHandler(ingestor Ingestor, publisher jobs.Publisher, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		ingestor:  ingestor,
		publisher: publisher,
		log:       log,
	}
}

type ingestBody struct {
	FileContent  string `json:"file_content"`
	FileName     string `json:"file_name"`
	AnalysisMode string `json:"analysis_mode"`
}

// IngestResponse is the body of a successful POST /api/ingest.
type IngestResponse struct {
	Success           bool                            `json:"success"`
	UploadID          string                          `json:"upload_id,omitempty"`
	TransactionsCount int                             `json:"transactions_count"`
	TotalParsed       int                             `json:"total_parsed"`
	FailedCount       int                             `json:"failed_count"`
	BySource          map[domain.ResolutionSource]int `json:"by_source,omitempty"`
	DuplicateOf       string                          `json:"duplicate_of,omitempty"`
	Message           string                          `json:"message"`
}

func newIngestResponse(s domain.Summary) IngestResponse {
	return IngestResponse{
		Success:           true,
		UploadID:          s.UploadID,
		TransactionsCount: s.ProcessedCount,
		TotalParsed:       s.TotalParsed,
		FailedCount:       s.FailedCount,
		BySource:          s.BySource,
		DuplicateOf:       s.DuplicateOf,
		Message:           fmt.Sprintf("%d of %d transactions processed", s.ProcessedCount, s.TotalParsed),
	}
}

// decodeIngest reads and validates the request body. An empty analysis mode
// means labeled.
func decodeIngest(w http.ResponseWriter, r *http.Request, userID string) (pipeline.IngestRequest, error) {
	var body ingestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxUploadBytes)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.IngestRequest{}, fmt.Errorf("%w: file larger than %d bytes", domain.ErrMalformedInput, MaxUploadBytes)
		}
		return pipeline.IngestRequest{}, fmt.Errorf("%w: invalid request body", domain.ErrMalformedInput)
	}

	mode := domain.ModeLabeled
	if strings.TrimSpace(body.AnalysisMode) != "" {
		m, err := domain.ParseMode(body.AnalysisMode)
		if err != nil {
			return pipeline.IngestRequest{}, err
		}
		mode = m
	}
	if strings.TrimSpace(body.FileContent) == "" {
		return pipeline.IngestRequest{}, fmt.Errorf("%w: file_content is required", domain.ErrMalformedInput)
	}

	return pipeline.IngestRequest{
		UserID:   userID,
		FileName: body.FileName,
		Content:  body.FileContent,
		Mode:     mode,
	}, nil
}

// Ingest handles POST /api/ingest
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	req, err := decodeIngest(w, r, userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid request")
		return
	}

	summary, err := h.ingestor.Ingest(r.Context(), req)
	if err != nil {
		writeServiceError(w, logger.FromContext(r.Context()), err, "Failed to ingest file")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, newIngestResponse(summary))
}

// EnqueueIngest handles POST /api/ingest/jobs
func (h *IngestHandler) EnqueueIngest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Background ingestion is disabled")
		return
	}

	req, err := decodeIngest(w, r, userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid request")
		return
	}

	job := &jobs.IngestJob{
		UserID:   req.UserID,
		FileName: req.FileName,
		Mode:     req.Mode,
		Content:  req.Content,
	}
	if err := h.publisher.PublishIngest(r.Context(), job); err != nil {
		writeServiceError(w, logger.FromContext(r.Context()), err, "Failed to enqueue ingest job")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().Str("job_id", job.JobID).Msg("Ingest job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}
