package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/google/uuid"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// IngestRequest is one uploaded file.
type IngestRequest struct {
	UserID   string
	FileName string
	Content  string
	Mode     domain.Mode
}

// IngestorConfig holds optional collaborators and knobs. Zero values pick
// sensible defaults.
type IngestorConfig struct {
	// Archiver stores raw files. Nil disables archival.
	Archiver Archiver

	// FallbackCategories overrides DefaultFallbackCategories.
	FallbackCategories []string

	Now   func() time.Time
	NewID func() string
}

// Ingestor turns uploaded files into stored transactions.
type Ingestor struct {
	repo     IngestRepository
	resolver *Resolver
	cfg      IngestorConfig
}

// NewIngestor creates an Ingestor writing to repo.
func NewIngestor(repo IngestRepository, resolver *Resolver, cfg IngestorConfig) *Ingestor {
	if len(cfg.FallbackCategories) == 0 {
		cfg.FallbackCategories = DefaultFallbackCategories
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if resolver == nil {
		resolver = NewResolver(nil, 0)
	}
	return &Ingestor{repo: repo, resolver: resolver, cfg: cfg}
}

// NewIngestionPipeline creates the standard 8-step ingestion pipeline.
func (in *Ingestor) NewIngestionPipeline() *Pipeline {
	return NewPipeline(
		&ValidateRequestStep{},
		&ParseFileStep{},
		&LoadVocabularyStep{Repo: in.repo, FallbackNames: in.cfg.FallbackCategories},
		&DetectDuplicateStep{Repo: in.repo},
		&ArchiveFileStep{Archiver: in.cfg.Archiver},
		&StartUploadStep{Repo: in.repo},
		&ResolveAndPersistStep{Repo: in.repo, Resolver: in.resolver, NewID: in.cfg.NewID},
		&FinishUploadStep{Repo: in.repo, Now: in.cfg.Now},
	)
}

// Ingest parses, categorizes and stores every record of req.
//
// Errors returned before any transaction is written are whole-call failures:
// domain.ErrUnauthenticated, domain.ErrMalformedInput, *domain.FormatError and
// domain.ErrVocabularyUnavailable. Per-record problems only show up in the
// summary counts. If ctx is cancelled mid-batch the partial summary is
// returned together with the context error.
func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (domain.Summary, error) {
	state := &PipelineState{
		Request:  req,
		Now:      in.cfg.Now(),
		UploadID: in.cfg.NewID(),
	}

	log := logger.FromContext(ctx).With().
		Str("upload_id", state.UploadID).
		Str("user_id", req.UserID).
		Str("file_name", req.FileName).
		Str("mode", string(req.Mode)).
		Logger()
	ctx = logger.WithContext(ctx, log)

	if err := in.NewIngestionPipeline().Execute(ctx, state); err != nil {
		finishUpload(context.WithoutCancel(ctx), in.repo, state, in.cfg.Now(), err)
		log.Error().Err(err).
			Int("total_parsed", state.Summary.TotalParsed).
			Int("processed", state.Summary.ProcessedCount).
			Msg("Ingestion failed")
		return state.Summary, err
	}

	log.Info().
		Int("total_parsed", state.Summary.TotalParsed).
		Int("processed", state.Summary.ProcessedCount).
		Int("failed", state.Summary.FailedCount).
		Str("duplicate_of", state.Summary.DuplicateOf).
		Msg("Ingestion complete")

	return state.Summary, nil
}
