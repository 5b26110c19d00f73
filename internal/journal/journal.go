package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/classifier"
	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/logging"
	"github.com/pbaille/mindspace/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTimeout bounds a single prediction
const DefaultTimeout = 5 * time.Second

// ErrEmptyEntry means the submitted text was empty or whitespace only
var ErrEmptyEntry = errors.New("journal entry is empty")

// Journal runs the submission flow: classify, record, persist
type Journal struct {
	classifier classifier.Classifier
	history    *store.History
	timeout    time.Duration
	now        func() time.Time
}

// Option is a functional option for Journal
type Option func(*Journal)

// WithTimeout sets the prediction timeout; zero disables it
func WithTimeout(d time.Duration) Option {
	return func(j *Journal) {
		j.timeout = d
	}
}

// WithClock overrides the time source used to stamp records
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New creates a Journal. The history must be loaded before Submit is called.
func New(c classifier.Classifier, h *store.History, opts ...Option) *Journal {
	j := &Journal{
		classifier: c,
		history:    h,
		timeout:    DefaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.classifier = classifier.WithTimeout(j.classifier, j.timeout)
	return j
}

// Submit classifies text and appends the resulting record to the history.
//
// A prediction failure aborts the submission and nothing is stored.
// A persistence failure returns the record together with an error wrapping
// store.ErrStoreWrite: the entry is in memory but not on disk.
func (j *Journal) Submit(ctx context.Context, text string) (*domain.MoodRecord, error) {
	ctx, span := otel.Tracer("journal").Start(ctx, "journal.Submit")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyEntry
	}

	prediction, err := j.classifier.Predict(ctx, text)
	if err != nil {
		span.SetStatus(codes.Error, "prediction failed")
		return nil, goerr.Wrap(err, "failed to classify journal entry")
	}
	span.SetAttributes(
		attribute.String("mood", prediction.Label),
		attribute.Float64("confidence", prediction.Confidence),
	)

	rec := domain.NewMoodRecord(prediction, j.now())
	if err := j.history.Add(ctx, rec); err != nil {
		span.SetStatus(codes.Error, "store failed")
		if errors.Is(err, store.ErrStoreWrite) {
			return &rec, err
		}
		return nil, err
	}

	logging.From(ctx).Info("journal entry recorded",
		"id", rec.ID, "mood", rec.Mood, "confidence", rec.Confidence)
	return &rec, nil
}

// History returns the underlying history store
func (j *Journal) History() *store.History {
	return j.history
}
