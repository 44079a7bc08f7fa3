package agent

import (
	"context"
	"errors"
	"time"

	"github.com/shikhr/opdroid/internal/llm"
)

// Sleeper abstracts blocking waits so tests can run the backoff
// schedule without real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryState drives the think-phase retry machine. Only rate-limit
// errors move it into backing off; everything else exits immediately.
type retryState int

const (
	retryAttempting retryState = iota
	retryBackingOff
	retrySucceeded
	retryExhausted
)

const (
	// maxRateLimitRetries bounds retries after the first attempt.
	maxRateLimitRetries = 3
	// rateLimitBaseDelay doubles each retry: 5s, 10s, 20s.
	rateLimitBaseDelay = 5 * time.Second
)

// retrier runs one operation through the Attempting -> BackingOff ->
// Succeeded | Exhausted machine. The wait for attempt n is
// base * 2^n unless the provider suggested its own wait, which wins.
type retrier struct {
	sleeper Sleeper
	onWait  func(attempt int, wait time.Duration)
}

func (r retrier) run(ctx context.Context, op func() (*llm.ChatResponse, error)) (*llm.ChatResponse, error) {
	var (
		resp    *llm.ChatResponse
		err     error
		attempt int
	)

	state := retryAttempting
	for {
		switch state {
		case retryAttempting:
			resp, err = op()
			switch {
			case err == nil:
				state = retrySucceeded
			case !llm.IsRateLimit(err):
				return nil, err
			case attempt >= maxRateLimitRetries:
				state = retryExhausted
			default:
				state = retryBackingOff
			}

		case retryBackingOff:
			wait := rateLimitBaseDelay << attempt
			var rl *llm.RateLimitError
			if errors.As(err, &rl) {
				if hinted, ok := rl.SuggestedWait(); ok {
					wait = hinted
				}
			}
			if r.onWait != nil {
				r.onWait(attempt, wait)
			}
			if serr := r.sleeper.Sleep(ctx, wait); serr != nil {
				return nil, serr
			}
			attempt++
			state = retryAttempting

		case retrySucceeded:
			return resp, nil

		case retryExhausted:
			return nil, err
		}
	}
}
