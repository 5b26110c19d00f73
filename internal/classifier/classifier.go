package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/domain"
)

var (
	// ErrModelLoad means the model artifact is missing, corrupt or unusable
	ErrModelLoad = errors.New("model load failed")

	// ErrPredictTimeout means a prediction did not finish in time
	ErrPredictTimeout = errors.New("prediction timed out")
)

// Classifier maps free text to a mood label and confidence
type Classifier interface {
	Predict(ctx context.Context, text string) (domain.Prediction, error)
}

// Func adapts a plain function to the Classifier interface
type Func func(ctx context.Context, text string) (domain.Prediction, error)

// Predict calls f
func (f Func) Predict(ctx context.Context, text string) (domain.Prediction, error) {
	return f(ctx, text)
}

// Static returns a classifier that always answers with label and confidence
func Static(label string, confidence float64) Classifier {
	return Func(func(context.Context, string) (domain.Prediction, error) {
		return domain.Prediction{Label: label, Confidence: confidence}, nil
	})
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds every prediction of c by d. A non-positive d disables the bound.
func WithTimeout(c Classifier, d time.Duration) Classifier {
	if d <= 0 {
		return c
	}
	return &timeoutClassifier{next: c, timeout: d}
}

type predictResult struct {
	prediction domain.Prediction
	err        error
}

func (t *timeoutClassifier) Predict(ctx context.Context, text string) (domain.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan predictResult, 1)
	go func() {
		p, err := t.next.Predict(ctx, text)
		done <- predictResult{prediction: p, err: err}
	}()

	select {
	case r := <-done:
		return r.prediction, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Prediction{}, goerr.Wrap(ErrPredictTimeout, "classifier did not answer", goerr.V("timeout", t.timeout))
		}
		return domain.Prediction{}, goerr.Wrap(ctx.Err(), "prediction canceled")
	}
}

func modelLoadError(err error) error {
	return fmt.Errorf("%w: %w", ErrModelLoad, err)
}
