package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrStoreRead means the backing store exists but could not be read or parsed
	ErrStoreRead = errors.New("store read failed")

	// ErrStoreWrite means the collection could not be persisted
	ErrStoreWrite = errors.New("store write failed")

	// ErrNotReady means Add was called before a successful Load
	ErrNotReady = errors.New("history not loaded")

	// ErrDuplicateID means a record with the same id is already stored
	ErrDuplicateID = errors.New("duplicate record id")
)

// Persister reads and writes the whole mood history
type Persister interface {
	// Load returns the stored records in insertion order. An absent store is
	// initialized empty before Load returns.
	Load(ctx context.Context) ([]domain.MoodRecord, error)

	// Save persists the complete collection
	Save(ctx context.Context, records []domain.MoodRecord) error
}

// State is the lifecycle state of a History
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observer receives a snapshot of the collection after every change
type Observer func(records []domain.MoodRecord)

// History owns the ordered, append-only mood collection and mirrors it to a Persister.
// All mutations are serialized; readers get copies.
type History struct {
	mu        sync.Mutex
	persister Persister
	records   []domain.MoodRecord
	state     State

	// notifyMu is taken before mu is released so snapshots reach observers in order
	notifyMu  sync.Mutex
	subMu     sync.Mutex
	observers map[int]Observer
	nextSubID int
}

// NewHistory creates an uninitialized history backed by p
func NewHistory(p Persister) *History {
	return &History{
		persister: p,
		observers: make(map[int]Observer),
	}
}

// State returns the current lifecycle state
func (h *History) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Load hydrates the collection from the persister. On failure the in-memory
// collection and state are left as they were.
func (h *History) Load(ctx context.Context) ([]domain.MoodRecord, error) {
	ctx, span := otel.Tracer("store").Start(ctx, "History.Load")
	defer span.End()

	h.mu.Lock()
	records, err := h.persister.Load(ctx)
	if err != nil {
		h.mu.Unlock()
		err = goerr.Wrap(fmt.Errorf("%w: %w", ErrStoreRead, err), "failed to load mood history")
		logging.From(ctx).Error("mood history not loaded, keeping current entries", "error", err)
		span.RecordError(err)
		return nil, err
	}

	h.records = append(make([]domain.MoodRecord, 0, len(records)), records...)
	h.state = Ready
	snapshot := h.snapshot()
	h.notifyMu.Lock()
	h.mu.Unlock()

	span.SetAttributes(attribute.Int("records", len(snapshot)))
	h.notify(snapshot)
	h.notifyMu.Unlock()
	return append([]domain.MoodRecord(nil), snapshot...), nil
}

// Add appends rec and persists the whole collection. A persistence failure
// is returned wrapping ErrStoreWrite; the in-memory append is kept.
func (h *History) Add(ctx context.Context, rec domain.MoodRecord) error {
	ctx, span := otel.Tracer("store").Start(ctx, "History.Add",
		trace.WithAttributes(attribute.String("mood", rec.Mood)))
	defer span.End()

	h.mu.Lock()
	if h.state != Ready {
		h.mu.Unlock()
		return goerr.Wrap(ErrNotReady, "load the history before adding entries")
	}
	for _, r := range h.records {
		if r.ID == rec.ID {
			h.mu.Unlock()
			return goerr.Wrap(ErrDuplicateID, "record already stored", goerr.V("id", rec.ID))
		}
	}

	h.records = append(h.records, rec)
	snapshot := h.snapshot()
	saveErr := h.persister.Save(ctx, snapshot)
	h.notifyMu.Lock()
	h.mu.Unlock()

	h.notify(snapshot)
	h.notifyMu.Unlock()

	if saveErr != nil {
		err := goerr.Wrap(fmt.Errorf("%w: %w", ErrStoreWrite, saveErr), "failed to persist mood history",
			goerr.V("id", rec.ID), goerr.V("records", len(snapshot)))
		logging.From(ctx).Error("mood entry kept in memory but not saved", "error", err)
		span.RecordError(err)
		return err
	}
	return nil
}

// Records returns a copy of the collection in insertion order
func (h *History) Records() []domain.MoodRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot()
}

// Find returns the first record whose id starts with prefix
func (h *History) Find(prefix string) (domain.MoodRecord, bool) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return domain.MoodRecord{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if strings.HasPrefix(strings.ToLower(r.ID), prefix) {
			return r, true
		}
	}
	return domain.MoodRecord{}, false
}

// Subscribe registers fn to be called after every change, in change order.
// fn must not call Load or Add. The returned func unregisters it.
func (h *History) Subscribe(fn Observer) (cancel func()) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	h.observers[id] = fn

	return func() {
		h.subMu.Lock()
		defer h.subMu.Unlock()
		delete(h.observers, id)
	}
}

func (h *History) snapshot() []domain.MoodRecord {
	return append(make([]domain.MoodRecord, 0, len(h.records)), h.records...)
}

func (h *History) notify(snapshot []domain.MoodRecord) {
	h.subMu.Lock()
	observers := make([]Observer, 0, len(h.observers))
	for _, o := range h.observers {
		observers = append(observers, o)
	}
	h.subMu.Unlock()

	for _, o := range observers {
		o(append([]domain.MoodRecord(nil), snapshot...))
	}
}
