package mailer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/config"
)

// RetryMailer decorates a Mailer with retries. The provider hiccups during
// race weekends when the whole grid's confirmations go out at once.
type RetryMailer struct {
	inner      application.Mailer
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryMailer(inner application.Mailer, cfg config.MailerConfig) application.Mailer {
	return &RetryMailer{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryMailer) Send(ctx context.Context, to, subject, html string) error {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := r.inner.Send(ctx, to, subject, html)
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var mailErr *MailerError
	if errors.As(err, &mailErr) {
		return mailErr.StatusCode >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network-level failures with no HTTP status are worth another try.
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryMailer) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
