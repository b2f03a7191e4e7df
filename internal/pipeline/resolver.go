package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

// Resolution is the category picked for one record and the strategy that
// picked it.
type Resolution struct {
	Category domain.Category
	Source   domain.ResolutionSource
}

// Strategy tries to resolve a record. ok is false when the next strategy in
// the chain should be consulted.
type Strategy interface {
	Resolve(ctx context.Context, rec RawRecord, vocab *Vocabulary) (Resolution, bool)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, rec RawRecord, vocab *Vocabulary) (Resolution, bool)

func (f StrategyFunc) Resolve(ctx context.Context, rec RawRecord, vocab *Vocabulary) (Resolution, bool) {
	return f(ctx, rec, vocab)
}

// LabeledStrategy matches the record's own category column.
type LabeledStrategy struct{}

func (LabeledStrategy) Resolve(_ context.Context, rec RawRecord, vocab *Vocabulary) (Resolution, bool) {
	if strings.TrimSpace(rec.Category) == "" {
		return Resolution{}, false
	}
	c, ok := vocab.Lookup(rec.Category)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Category: c, Source: domain.SourceLabeled}, true
}

// ClassifierStrategy asks a Classifier for a label and accepts it only if it
// names a vocabulary category.
type ClassifierStrategy struct {
	Classifier Classifier
	Timeout    time.Duration
}

func (s ClassifierStrategy) Resolve(ctx context.Context, rec RawRecord, vocab *Vocabulary) (Resolution, bool) {
	if s.Classifier == nil || vocab.Len() == 0 {
		return Resolution{}, false
	}

	log := logger.FromContext(ctx)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	label, err := s.Classifier.Classify(cctx, rec.Description, rec.Amount, vocab.Labels())
	if err != nil {
		log.Warn().
			Err(err).
			Int("line", rec.Line).
			Str("description", rec.Description).
			Msg("Classifier failed, falling back")
		return Resolution{}, false
	}

	c, ok := vocab.Lookup(normalizeLabel(label))
	if !ok {
		log.Debug().
			Int("line", rec.Line).
			Str("label", label).
			Msg("Classifier returned a label outside the vocabulary")
		return Resolution{}, false
	}
	return Resolution{Category: c, Source: domain.SourceClassifier}, true
}

// FallbackStrategy picks the vocabulary's catch-all category.
type FallbackStrategy struct{}

func (FallbackStrategy) Resolve(_ context.Context, _ RawRecord, vocab *Vocabulary) (Resolution, bool) {
	c, ok := vocab.Fallback()
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Category: c, Source: domain.SourceFallback}, true
}

// Resolver runs the strategy chain for a given mode.
type Resolver struct {
	labeled  []Strategy
	inferred []Strategy
}

// NewResolver wires the default chains. c may be nil, in which case inferred
// mode goes straight to the fallback.
func NewResolver(c Classifier, timeout time.Duration) *Resolver {
	return &Resolver{
		labeled: []Strategy{LabeledStrategy{}, FallbackStrategy{}},
		inferred: []Strategy{
			ClassifierStrategy{Classifier: c, Timeout: timeout},
			FallbackStrategy{},
		},
	}
}

// Chain returns the ordered strategies used for mode.
func (r *Resolver) Chain(mode domain.Mode) []Strategy {
	if mode == domain.ModeInferred {
		return r.inferred
	}
	return r.labeled
}

// Resolve returns the first strategy result for rec. ok is false when no
// strategy, including the fallback, produced a category.
func (r *Resolver) Resolve(ctx context.Context, rec RawRecord, mode domain.Mode, vocab *Vocabulary) (Resolution, bool) {
	return resolveChain(ctx, r.Chain(mode), rec, vocab)
}

func resolveChain(ctx context.Context, chain []Strategy, rec RawRecord, vocab *Vocabulary) (Resolution, bool) {
	for _, s := range chain {
		if res, ok := s.Resolve(ctx, rec, vocab); ok {
			return res, true
		}
	}
	return Resolution{}, false
}

// normalizeLabel cleans a free-text classifier answer down to a bare name.
func normalizeLabel(label string) string {
	s := strings.TrimSpace(label)
	s = strings.Trim(s, "`\"'*")
	s = strings.TrimRight(s, ".!;:,")
	s = strings.Trim(s, "`\"'* ")
	return strings.ToLower(s)
}
