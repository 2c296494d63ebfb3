package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	defaultBaseDelay = time.Second
	maxDelay         = 30 * time.Second
)

// Policy bounds every call with a timeout and, when MaxRetries > 0, retries
// temporary transport failures with exponential backoff and jitter.
type Policy struct {
	next       Invoker
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

func NewPolicy(next Invoker, timeout time.Duration, maxRetries int, logger *slog.Logger) *Policy {
	return &Policy{
		next:       next,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  defaultBaseDelay,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

func (p *Policy) Invoke(ctx context.Context, messages []Message, params Params) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := p.invokeOnce(ctx, messages, params)
		if err == nil {
			return out, nil
		}

		var te *TransportError
		if attempt >= p.maxRetries || !errors.As(err, &te) || !te.Temporary() || ctx.Err() != nil {
			return "", err
		}

		delay := p.backoff(attempt)
		p.logger.Warn("model call failed, retrying",
			"attempt", attempt+1,
			"max_retries", p.maxRetries,
			"delay", delay.String(),
			"error", err,
		)
		if err := p.sleep(ctx, delay); err != nil {
			return "", &TransportError{Provider: te.Provider, Err: err}
		}
	}
}

func (p *Policy) invokeOnce(ctx context.Context, messages []Message, params Params) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.next.Invoke(ctx, messages, params)
}

func (p *Policy) backoff(attempt int) time.Duration {
	d := p.baseDelay << attempt
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	return d + rand.N(p.baseDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
