package detector

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoConsensus is returned by Stabilize when the decision cap is reached
// before two consecutive decisions agree.
var ErrNoConsensus = errors.New("no consensus between consecutive decisions")

// Stabilize debounces a decision source. It decides once, then repeatedly
// waits and decides again until two consecutive decisions are equal, and
// returns that value. observe, when non-nil, sees every decision in order.
//
// With maxDecisions <= 0 there is no bound: input that keeps alternating
// loops until ctx is cancelled. Otherwise at most maxDecisions decisions
// are made and the last one is returned with ErrNoConsensus.
func Stabilize[T comparable](
	ctx context.Context,
	decide func(context.Context) (T, error),
	wait func(context.Context) error,
	maxDecisions int,
	observe func(T),
) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	prev, err := decide(ctx)
	if err != nil {
		return zero, err
	}
	if observe != nil {
		observe(prev)
	}

	for n := 1; ; n++ {
		if maxDecisions > 0 && n >= maxDecisions {
			return prev, fmt.Errorf("%w after %d decisions", ErrNoConsensus, n)
		}
		if err := ctx.Err(); err != nil {
			return prev, err
		}
		if err := wait(ctx); err != nil {
			return prev, err
		}
		if err := ctx.Err(); err != nil {
			return prev, err
		}

		cur, err := decide(ctx)
		if err != nil {
			return prev, err
		}
		if observe != nil {
			observe(cur)
		}
		if cur == prev {
			return cur, nil
		}
		prev = cur
	}
}
