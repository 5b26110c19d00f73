package classifier

import (
	"context"
	"log/slog"

	"github.com/pbaille/mindspace/internal/domain"
	"github.com/pbaille/mindspace/internal/logging"
)

// Bundled classifies text with the on-device model.
// When the model fails to load it stays disabled for its whole lifetime and
// answers every prediction with Unknown/0.
type Bundled struct {
	model  *Model
	logger *slog.Logger
}

// BundledOption configures a Bundled classifier
type BundledOption func(*Bundled)

// WithLogger sets the logger used to report load failures
func WithLogger(logger *slog.Logger) BundledOption {
	return func(b *Bundled) {
		b.logger = logger
	}
}

// NewBundled loads the model at path (the embedded model when path is empty).
// It always returns a usable classifier; the error, wrapping ErrModelLoad,
// tells the caller that classification is disabled.
func NewBundled(path string, opts ...BundledOption) (*Bundled, error) {
	b := &Bundled{logger: logging.Default()}
	for _, opt := range opts {
		opt(b)
	}

	m, err := LoadModel(path)
	if err != nil {
		b.logger.Error("mood model unavailable, classification disabled", "error", err)
		return b, err
	}

	b.model = m
	b.logger.Debug("mood model loaded", "name", m.Name(), "labels", m.Labels())
	return b, nil
}

// Loaded reports whether the model is available
func (b *Bundled) Loaded() bool {
	return b.model != nil
}

// Labels returns the model vocabulary, or nil when disabled
func (b *Bundled) Labels() []string {
	if b.model == nil {
		return nil
	}
	return b.model.Labels()
}

// Predict returns the most probable label. Its confidence is the posterior
// probability of that label over the model's whole label set.
func (b *Bundled) Predict(ctx context.Context, text string) (domain.Prediction, error) {
	hyps, err := b.Hypotheses(ctx, text, 1)
	if err != nil {
		return domain.Prediction{}, err
	}
	if len(hyps) == 0 {
		return domain.UnknownPrediction(), nil
	}
	return domain.Prediction{Label: hyps[0].Label, Confidence: hyps[0].Probability}, nil
}

// Hypotheses returns up to max ranked labels; max <= 0 returns all of them
func (b *Bundled) Hypotheses(ctx context.Context, text string, max int) ([]domain.Hypothesis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.model == nil {
		logging.From(ctx).Debug("model not loaded, skipping prediction")
		return nil, nil
	}

	ranked := b.model.Rank(text)
	if max > 0 && max < len(ranked) {
		ranked = ranked[:max]
	}
	return ranked, nil
}
