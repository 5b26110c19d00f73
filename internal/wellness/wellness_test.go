package wellness_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/pbaille/mindspace/internal/wellness"
)

func TestRandomTip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		tip := wellness.RandomTip(wellness.Tips, r)
		gt.True(t, slices.Contains(wellness.Tips, tip))
	}
	gt.True(t, slices.Contains(wellness.Tips, wellness.RandomTip(wellness.Tips, nil)))
}

func TestRandomTipEmpty(t *testing.T) {
	gt.Equal(t, wellness.RandomTip(nil, nil), wellness.NoTip)
}

func TestBreatheCycles(t *testing.T) {
	var phases []wellness.Phase
	n, err := wellness.Breathe(context.Background(), 2, time.Millisecond, func(p wellness.Phase, cycle int) {
		phases = append(phases, p)
	})
	gt.NoError(t, err)
	gt.Equal(t, n, 2)
	gt.Equal(t, phases, []wellness.Phase{wellness.Inhale, wellness.Exhale, wellness.Inhale, wellness.Exhale})
}

func TestBreatheStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	n, err := wellness.Breathe(ctx, 0, time.Hour, func(wellness.Phase, int) {
		calls++
		cancel()
	})
	gt.True(t, errors.Is(err, context.Canceled))
	gt.Equal(t, n, 0)
	gt.Equal(t, calls, 1)
}

func TestPhaseString(t *testing.T) {
	gt.Equal(t, wellness.Inhale.String(), "Breathe in")
	gt.Equal(t, wellness.Exhale.String(), "Breathe out")
}
