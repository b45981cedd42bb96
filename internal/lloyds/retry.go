package lloyds

import (
	"context"
	"time"
)

// Policy bounds retries for adapter calls. Sleep is injectable so tests run
// without real delays.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// RegistrationPolicy covers registration and certificate pulls: up to five
// attempts with exponential backoff starting at thirty seconds.
func RegistrationPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 30 * time.Second}
}

// IncidentPolicy covers incident forwarding: three attempts spread over
// roughly ten minutes.
func IncidentPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Minute}
}

// Do runs fn until it succeeds, exhausts attempts, or hits a non-retryable
// failure. The delay doubles after each attempt.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == p.MaxAttempts {
			return err
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
