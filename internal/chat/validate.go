package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidTranscript marks a transcript rejected before any upstream call.
var ErrInvalidTranscript = errors.New("invalid transcript")

// Validator guards the chat endpoint against empty queries and oversized transcripts.
type Validator struct {
	validate    *validator.Validate
	maxMessages int
}

// NewValidator creates a Validator accepting at most maxMessages messages.
func NewValidator(maxMessages int) *Validator {
	return &Validator{
		validate:    validator.New(),
		maxMessages: maxMessages,
	}
}

// Validate returns an error wrapping ErrInvalidTranscript when t cannot be answered.
// Only the last message needs content; earlier assistant turns may be empty when a
// previous request failed on the client.
func (v *Validator) Validate(t Transcript) error {
	if len(t) == 0 {
		return fmt.Errorf("%w: transcript is empty", ErrInvalidTranscript)
	}
	if err := v.validate.Var([]Message(t), fmt.Sprintf("max=%d", v.maxMessages)); err != nil {
		return fmt.Errorf("%w: transcript exceeds %d messages", ErrInvalidTranscript, v.maxMessages)
	}

	for i, m := range t {
		if err := v.validate.Struct(m); err != nil {
			return fmt.Errorf("%w: message %d has invalid role %q", ErrInvalidTranscript, i, m.Role)
		}
	}

	if strings.TrimSpace(t.Last().Content) == "" {
		return fmt.Errorf("%w: last message is empty", ErrInvalidTranscript)
	}
	return nil
}
