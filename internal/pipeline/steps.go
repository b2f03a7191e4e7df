package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request    IngestRequest
	Now        time.Time
	UploadID   string
	Records    *Records
	Vocabulary *Vocabulary
	Checksum   string
	ArchiveURI string

	// Upload is set once the bookkeeping row has been written.
	Upload  *domain.Upload
	Summary domain.Summary
}

// Step 1: ValidateRequestStep rejects requests that can never succeed.
type ValidateRequestStep struct{}

func (s *ValidateRequestStep) Execute(ctx context.Context, state *PipelineState) error {
	req := &state.Request
	if strings.TrimSpace(req.UserID) == "" {
		return domain.ErrUnauthenticated
	}
	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: file content is empty", domain.ErrMalformedInput)
	}
	if req.Mode != domain.ModeLabeled && req.Mode != domain.ModeInferred {
		return fmt.Errorf("%w: unknown analysis mode %q", domain.ErrMalformedInput, req.Mode)
	}
	if strings.TrimSpace(req.FileName) == "" {
		req.FileName = DefaultFileName
	}

	state.Summary.UploadID = state.UploadID
	state.Summary.FileName = req.FileName
	state.Summary.BySource = make(map[domain.ResolutionSource]int)
	return nil
}

// Step 2: ParseFileStep reads the header and infers the columns.
type ParseFileStep struct{}

func (s *ParseFileStep) Execute(ctx context.Context, state *PipelineState) error {
	records, err := Parse(state.Request.Content, state.Now)
	if err != nil {
		return err
	}
	state.Records = records
	return nil
}

// Step 3: LoadVocabularyStep snapshots the category taxonomy for the batch.
type LoadVocabularyStep struct {
	Repo          store.CategoryRepository
	FallbackNames []string
}

func (s *LoadVocabularyStep) Execute(ctx context.Context, state *PipelineState) error {
	categories, err := s.Repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("LoadVocabularyStep: listing categories: %w: %w", domain.ErrVocabularyUnavailable, err)
	}
	state.Vocabulary = NewVocabulary(categories, s.FallbackNames)

	if _, ok := state.Vocabulary.Fallback(); !ok {
		log := logger.FromContext(ctx)
		log.Warn().
			Strs("fallback_names", s.FallbackNames).
			Msg("No fallback category found, unresolved records will be dropped")
	}
	return nil
}

// Step 4: DetectDuplicateStep flags content the user has uploaded before.
// Ingestion carries on either way.
type DetectDuplicateStep struct {
	Repo store.UploadRepository
}

func (s *DetectDuplicateStep) Execute(ctx context.Context, state *PipelineState) error {
	sum := sha256.Sum256([]byte(state.Request.Content))
	state.Checksum = hex.EncodeToString(sum[:])

	log := logger.FromContext(ctx)

	prev, err := s.Repo.FindUploadByChecksum(ctx, state.Request.UserID, state.Checksum)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("Failed to look up earlier uploads, skipping duplicate check")
		return nil
	}

	state.Summary.DuplicateOf = prev.ID
	log.Warn().
		Str("previous_upload_id", prev.ID).
		Str("checksum", state.Checksum).
		Msg("File was uploaded before, transactions will be stored again")
	return nil
}

// Step 5: ArchiveFileStep stores the raw file. Failure is logged, not fatal.
type ArchiveFileStep struct {
	Archiver Archiver
}

func (s *ArchiveFileStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}

	name := archiveObjectName(state.Now, state.UploadID, state.Request.FileName)
	uri, err := s.Archiver.Archive(ctx, name, []byte(state.Request.Content))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("object", name).Msg("Failed to archive upload")
		return nil
	}
	state.ArchiveURI = uri
	return nil
}

func archiveObjectName(now time.Time, uploadID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s-%s", now.UTC().Format("2006/01/02"), uploadID, path.Base(fileName))
}

// Step 6: StartUploadStep writes the running upload row. Failure is logged,
// not fatal.
type StartUploadStep struct {
	Repo store.UploadRepository
}

func (s *StartUploadStep) Execute(ctx context.Context, state *PipelineState) error {
	u := &domain.Upload{
		ID:             state.UploadID,
		UserID:         state.Request.UserID,
		FileName:       state.Request.FileName,
		Mode:           state.Request.Mode,
		ChecksumSHA256: state.Checksum,
		ArchiveURI:     state.ArchiveURI,
		Status:         domain.UploadRunning,
		StartedAt:      state.Now,
	}
	if err := s.Repo.InsertUpload(ctx, u); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("upload_id", u.ID).Msg("Failed to record upload")
		return nil
	}
	state.Upload = u
	return nil
}

// Step 7: ResolveAndPersistStep resolves and stores every record in file
// order. Per-record failures are counted and skipped. The step stops when
// ctx is cancelled; rows already stored stay.
type ResolveAndPersistStep struct {
	Repo     store.TransactionRepository
	Resolver *Resolver
	NewID    func() string
}

func (s *ResolveAndPersistStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	sum := &state.Summary

	for rec := range state.Records.All() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ResolveAndPersistStep: stopped at line %d: %w", rec.Line, err)
		}
		sum.TotalParsed++

		res, ok := s.Resolver.Resolve(ctx, rec, state.Request.Mode, state.Vocabulary)
		if !ok {
			sum.FailedCount++
			log.Warn().Int("line", rec.Line).Str("description", rec.Description).Msg("No category resolved, dropping record")
			continue
		}
		if res.Source == domain.SourceFallback {
			log.Debug().Int("line", rec.Line).Str("category", res.Category.Name).Msg("Using fallback category")
		}

		date, err := parseDate(rec.Date)
		if err != nil {
			sum.FailedCount++
			log.Warn().Err(err).Int("line", rec.Line).Msg("Skipping record with invalid date")
			continue
		}

		tx := &domain.Transaction{
			ID:          s.NewID(),
			UserID:      state.Request.UserID,
			UploadID:    state.UploadID,
			CategoryID:  res.Category.ID,
			Description: rec.Description,
			Amount:      rec.Amount,
			Date:        date,
			SourceFile:  state.Request.FileName,
			CreatedAt:   state.Now,
		}
		if err := s.Repo.InsertTransaction(ctx, tx); err != nil {
			sum.FailedCount++
			log.Warn().Err(err).Int("line", rec.Line).Msg("Failed to insert transaction")
			continue
		}

		sum.ProcessedCount++
		sum.BySource[res.Source]++
	}

	return nil
}

// Step 8: FinishUploadStep stores the final counts on the upload row.
type FinishUploadStep struct {
	Repo store.UploadRepository
	Now  func() time.Time
}

func (s *FinishUploadStep) Execute(ctx context.Context, state *PipelineState) error {
	finishUpload(ctx, s.Repo, state, s.Now(), nil)
	return nil
}

// finishUpload writes final counts and status. Errors are logged only.
func finishUpload(ctx context.Context, repo store.UploadRepository, state *PipelineState, at time.Time, runErr error) {
	u := state.Upload
	if u == nil {
		return
	}

	u.TotalParsed = state.Summary.TotalParsed
	u.ProcessedCount = state.Summary.ProcessedCount
	u.FailedCount = state.Summary.FailedCount
	u.FinishedAt = &at
	u.Status = domain.UploadSucceeded
	if runErr != nil {
		u.Status = domain.UploadFailed
		u.ErrorMessage = truncate(runErr.Error(), maxErrorMessageLen)
	}

	if err := repo.FinishUpload(ctx, u); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("upload_id", u.ID).Msg("Failed to finish upload record")
	}
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02"}

// parseDate accepts ISO dates as well as DD/MM/YYYY and YYYY/MM/DD.
func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("parseDate: unrecognised date %q", s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
