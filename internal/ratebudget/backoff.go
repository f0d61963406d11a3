package ratebudget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v55/github"

	"github.com/ghinsight/ghinsight/internal/apperrors"
	"github.com/ghinsight/ghinsight/internal/domain"
)

const (
	// transientDelay is the fixed pause after failures that are not rate
	// limits
	transientDelay = 2 * time.Second

	// secondaryCooldown is the pause after a rate-limit error while budget
	// still remains, which signals a short-window secondary limit
	secondaryCooldown = 60 * time.Second

	// resetBuffer pads the wait past the reported reset time
	resetBuffer = 30 * time.Second

	// unknownResetDelay is the fallback when the reset time cannot be
	// determined
	unknownResetDelay = 5 * time.Minute

	defaultMaxAttempts = 3
)

// BackoffState is the observable phase of a backoff state machine
type BackoffState string

const (
	BackoffIdle     BackoffState = "idle"
	BackoffWaiting  BackoffState = "waiting"
	BackoffRetrying BackoffState = "retrying"
	BackoffGivenUp  BackoffState = "given_up"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff waits out transient failures. One value serves one retry loop;
// its contract is that Wait does not return nil before it is safe to issue
// the next attempt, so callers retry immediately after a nil return instead
// of sleeping on their own
type Backoff struct {
	state       BackoffState
	attempts    int
	maxAttempts int
	sleep       sleepFunc
	now         func() time.Time
	coreRate    func() domain.RateLimitUsage
	logger      *slog.Logger
}

// State returns the current phase
func (b *Backoff) State() BackoffState {
	return b.state
}

// Attempts returns how many waits have been served
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Wait classifies cause, blocks until a retry is safe and returns nil. It
// returns an error once the attempt budget is spent or the context ends;
// after that the machine stays in the given-up state
func (b *Backoff) Wait(ctx context.Context, cause error) error {
	if b.state == BackoffGivenUp {
		return apperrors.NewRateLimitedError("backoff already gave up")
	}

	b.attempts++
	if b.attempts > b.maxAttempts {
		b.state = BackoffGivenUp
		return fmt.Errorf("giving up after %d attempts: %w", b.maxAttempts, cause)
	}

	delay := b.delayFor(cause)
	b.logger.Warn("backing off",
		"attempt", b.attempts,
		"max_attempts", b.maxAttempts,
		"delay", delay,
		"cause", cause)

	b.state = BackoffWaiting
	if err := b.sleep(ctx, delay); err != nil {
		b.state = BackoffGivenUp
		return err
	}
	b.state = BackoffRetrying
	return nil
}

// delayFor picks the wait for one failure: a short fixed pause for plain
// transport errors, the secondary cooldown while budget remains, and a
// wait past the reset time once the budget is exhausted
func (b *Backoff) delayFor(cause error) time.Duration {
	if !isRateLimit(cause) {
		return transientDelay
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(cause, &abuse) && abuse.RetryAfter != nil {
		return *abuse.RetryAfter
	}

	rate := b.coreRate()
	if rate.Remaining > 0 {
		return secondaryCooldown
	}

	reset := rate.ResetTime
	var limitErr *github.RateLimitError
	if errors.As(cause, &limitErr) && !limitErr.Rate.Reset.Time.IsZero() {
		reset = limitErr.Rate.Reset.Time
	}
	if reset.IsZero() {
		return unknownResetDelay
	}

	wait := reset.Sub(b.now()) + resetBuffer
	if wait < resetBuffer {
		wait = resetBuffer
	}
	return wait
}

func isRateLimit(err error) bool {
	var limitErr *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	return errors.As(err, &limitErr) || errors.As(err, &abuse) || apperrors.IsRateLimited(err)
}
