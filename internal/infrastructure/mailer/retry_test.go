package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokthenats/karting-registry/internal/config"
)

type scriptedMailer struct {
	results []error
	calls   int
}

func (m *scriptedMailer) Send(ctx context.Context, to, subject, html string) error {
	defer func() { m.calls++ }()
	if m.calls < len(m.results) {
		return m.results[m.calls]
	}
	return nil
}

func newTestRetryMailer(inner *scriptedMailer, maxRetries int32) *RetryMailer {
	return NewRetryMailer(inner, config.MailerConfig{
		BaseDelay:  0,
		MaxRetries: maxRetries,
	}).(*RetryMailer)
}

func TestRetryMailer_FirstAttemptSucceeds(t *testing.T) {
	inner := &scriptedMailer{}
	r := newTestRetryMailer(inner, 3)

	require.NoError(t, r.Send(context.Background(), "anna@example.com", "subject", "<p>hi</p>"))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryMailer_RetriesServerErrors(t *testing.T) {
	inner := &scriptedMailer{results: []error{
		&MailerError{Message: "upstream busy", StatusCode: 503},
		&MailerError{Message: "upstream busy", StatusCode: 503},
	}}
	r := newTestRetryMailer(inner, 3)

	require.NoError(t, r.Send(context.Background(), "anna@example.com", "subject", "<p>hi</p>"))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryMailer_ClientErrorIsNotRetried(t *testing.T) {
	inner := &scriptedMailer{results: []error{
		&MailerError{Message: "bad recipient", StatusCode: 400},
	}}
	r := newTestRetryMailer(inner, 3)

	err := r.Send(context.Background(), "nope", "subject", "<p>hi</p>")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)

	mailErr, ok := IsMailerError(err)
	require.True(t, ok)
	assert.False(t, mailErr.IsRetryable())
}

func TestRetryMailer_ExhaustsRetries(t *testing.T) {
	inner := &scriptedMailer{results: []error{
		&MailerError{Message: "down", StatusCode: 500},
		&MailerError{Message: "down", StatusCode: 500},
		&MailerError{Message: "down", StatusCode: 500},
	}}
	r := newTestRetryMailer(inner, 3)

	err := r.Send(context.Background(), "anna@example.com", "subject", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	assert.Equal(t, 3, inner.calls)
}

func TestRetryMailer_NetworkErrorsAreRetried(t *testing.T) {
	inner := &scriptedMailer{results: []error{
		errors.New("connection reset"),
	}}
	r := newTestRetryMailer(inner, 3)

	require.NoError(t, r.Send(context.Background(), "anna@example.com", "subject", "<p>hi</p>"))
	assert.Equal(t, 2, inner.calls)
}

func TestRetryMailer_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &scriptedMailer{}
	r := newTestRetryMailer(inner, 3)

	err := r.Send(ctx, "anna@example.com", "subject", "<p>hi</p>")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, inner.calls)
}
