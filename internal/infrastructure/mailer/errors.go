package mailer

import (
	"errors"
	"fmt"
)

type MailerError struct {
	Message    string
	StatusCode int
}

func (e *MailerError) Error() string {
	return fmt.Sprintf("mailer error: %s (status: %d)", e.Message, e.StatusCode)
}

func (e *MailerError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsMailerError(err error) (*MailerError, bool) {
	var mailErr *MailerError
	ok := errors.As(err, &mailErr)
	return mailErr, ok
}
