package wellness

import (
	"context"
	"time"
)

// DefaultBreathPeriod is the length of one inhale or one exhale
const DefaultBreathPeriod = 4 * time.Second

// Phase is one half of a breathing cycle
type Phase int

const (
	Inhale Phase = iota
	Exhale
)

func (p Phase) String() string {
	if p == Inhale {
		return "Breathe in"
	}
	return "Breathe out"
}

// Breathe alternates inhale and exhale phases of the given period, calling fn
// at the start of each. cycles <= 0 runs until ctx is done. It returns the
// number of completed cycles and ctx.Err() if it was interrupted.
func Breathe(ctx context.Context, cycles int, period time.Duration, fn func(Phase, int)) (int, error) {
	if period <= 0 {
		period = DefaultBreathPeriod
	}

	timer := time.NewTimer(period)
	defer timer.Stop()

	for done := 0; cycles <= 0 || done < cycles; done++ {
		for _, phase := range []Phase{Inhale, Exhale} {
			fn(phase, done+1)
			timer.Reset(period)
			select {
			case <-ctx.Done():
				return done, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return cycles, nil
}
