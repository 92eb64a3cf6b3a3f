package leads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxBodyBytes bounds the size of a submission body.
const MaxBodyBytes = 64 << 10

// ParseSubmission decodes a JSON submission body. Unknown fields are ignored
// so forms can send extra tracking keys without breaking.
func ParseSubmission(r io.Reader) (Submission, error) {
	var sub Submission
	if r == nil {
		return sub, ErrEmptyBody
	}
	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return sub, fmt.Errorf("leads: read body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return sub, ErrBodyTooLarge
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return sub, ErrEmptyBody
	}
	if body[0] != '{' {
		return sub, ErrInvalidJSON
	}
	if err := json.Unmarshal(body, &sub); err != nil {
		return sub, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return sub, nil
}
