package commands

import (
	"context"
	"time"
)

// poll evaluates cond until it returns true, the budget is spent or ctx is done.
// cond always runs at least once, so a zero budget is a single synchronous check.
func poll(ctx context.Context, budget, interval time.Duration, cond func() bool) error {
	deadline := time.Now().Add(budget)
	for {
		if cond() {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errWaitExpired
		}
		wait := interval
		if remaining < wait {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// cause drops the internal expiry marker so only real causes reach the caller
func cause(err error) error {
	if err == errWaitExpired {
		return nil
	}
	return err
}
