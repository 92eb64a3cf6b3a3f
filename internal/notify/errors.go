package notify

import (
	"errors"
	"fmt"
	"net/textproto"

	"golang.org/x/oauth2"
)

// ErrNotConfigured is returned by a sender that lacks required settings.
var ErrNotConfigured = errors.New("notify: channel not configured")

// ErrorKind classifies a failed delivery attempt.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindNotConfigured ErrorKind = "not_configured"
	ErrorKindAuth          ErrorKind = "auth"
	ErrorKindTransport     ErrorKind = "transport"
	ErrorKindRejected      ErrorKind = "rejected"
)

// RejectedError is returned when a provider answers with an error status.
type RejectedError struct {
	Channel    Kind
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("notify: %s returned status %d", e.Channel, e.StatusCode)
	}
	return fmt.Sprintf("notify: %s returned status %d: %s", e.Channel, e.StatusCode, e.Body)
}

// Classify maps a sender error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	if errors.Is(err, ErrNotConfigured) {
		return ErrorKindNotConfigured
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return ErrorKindAuth
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		if rejected.StatusCode == 401 || rejected.StatusCode == 403 {
			return ErrorKindAuth
		}
		return ErrorKindRejected
	}
	var smtpErr *textproto.Error
	if errors.As(err, &smtpErr) {
		if smtpErr.Code == 535 || smtpErr.Code == 530 {
			return ErrorKindAuth
		}
		return ErrorKindRejected
	}
	return ErrorKindTransport
}
