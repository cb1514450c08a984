package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollConfig bounds WaitForActive.
type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	Deadline    time.Duration
}

func (p PollConfig) withDefaults() PollConfig {
	if p.Interval <= 0 {
		p.Interval = 2 * time.Second
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 40
	}
	if p.Deadline <= 0 {
		p.Deadline = 5 * time.Minute
	}
	return p
}

// WaitForActive polls the file until it leaves PROCESSING. It returns
// ErrFileFailed when the service reports FAILED and ErrPollExhausted when
// the attempt count or deadline runs out first.
func (c *Client) WaitForActive(ctx context.Context, file File, cfg PollConfig) (File, error) {
	cfg = cfg.withDefaults()
	pollCtx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()

	interval := cfg.Interval
	current := file
	for attempt := 1; ; attempt++ {
		switch current.State {
		case StateActive:
			return current, nil
		case StateFailed:
			reason := "no reason given"
			if current.Error != nil && current.Error.Message != "" {
				reason = current.Error.Message
			}
			return current, fmt.Errorf("%w: %s: %s", ErrFileFailed, current.Name, reason)
		}
		if attempt > cfg.MaxAttempts {
			return current, fmt.Errorf("%w: %s still %s after %d polls", ErrPollExhausted, current.Name, current.State, cfg.MaxAttempts)
		}
		if err := c.sleep(pollCtx, interval); err != nil {
			return current, c.pollStopped(ctx, current, err)
		}
		next, err := c.GetFile(pollCtx, current.Name)
		if err != nil {
			return current, c.pollStopped(ctx, current, err)
		}
		current = next
		interval *= 2
		if interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}
}

// pollStopped distinguishes the poll deadline from caller cancellation.
func (c *Client) pollStopped(parent context.Context, file File, err error) error {
	if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s still %s at deadline", ErrPollExhausted, file.Name, file.State)
	}
	return fmt.Errorf("gemini poll %s: %w", file.Name, err)
}
