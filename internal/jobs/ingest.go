package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
)

// Ingestor runs one ingestion call.
type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.IngestRequest) (domain.Summary, error)
}

// NewIngestHandler returns a JobHandler that feeds IngestJobs to in. The
// summary is stored on the job even when the run fails part way. Only a
// vocabulary load failure is marked retryable, since nothing was written yet.
func NewIngestHandler(in Ingestor) JobHandler {
	return func(ctx context.Context, job Job) error {
		ingestJob, ok := job.(*IngestJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", ingestJob.JobID).
			Str("user_id", ingestJob.UserID).
			Logger()
		ctx = logger.WithContext(ctx, log)

		log.Info().Str("file_name", ingestJob.FileName).Int("attempt", ingestJob.RetryCount+1).Msg("Processing ingest job")

		summary, err := in.Ingest(ctx, pipeline.IngestRequest{
			UserID:   ingestJob.UserID,
			FileName: ingestJob.FileName,
			Content:  ingestJob.Content,
			Mode:     ingestJob.Mode,
		})
		if summary.TotalParsed > 0 || summary.UploadID != "" {
			ingestJob.Summary = &summary
		}

		switch {
		case err == nil:
			log.Info().Int("processed", summary.ProcessedCount).Int("total_parsed", summary.TotalParsed).Msg("Ingest job completed")
			return nil
		case errors.Is(err, domain.ErrVocabularyUnavailable):
			return fmt.Errorf("%w: %w", ErrRetryable, err)
		default:
			return err
		}
	}
}
