package leads

import "errors"

var (
	// ErrInvalidJSON is returned when the request body is not a JSON object
	ErrInvalidJSON = errors.New("leads: invalid JSON body")

	// ErrBodyTooLarge is returned when the request body exceeds MaxBodyBytes
	ErrBodyTooLarge = errors.New("leads: request body too large")

	// ErrEmptyBody is returned when no request body was sent
	ErrEmptyBody = errors.New("leads: request body is empty")
)
