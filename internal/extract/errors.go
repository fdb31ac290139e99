package extract

import (
	"errors"
	"fmt"
)

// AuthoringError reports malformed rule content in a step definition,
// such as an invalid regular expression. Authoring errors are fatal: they
// surface immediately at extraction time so broken content is caught
// during scenario development, never at a learner's keyboard.
type AuthoringError struct {
	// Step names the offending step.
	Step string

	// RuleID identifies the rule within the step.
	RuleID string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (e.g. the regexp parse error).
	Err error
}

// Error implements the error interface.
func (e *AuthoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %q rule %q: %s: %v", e.Step, e.RuleID, e.Message, e.Err)
	}
	return fmt.Sprintf("step %q rule %q: %s", e.Step, e.RuleID, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AuthoringError) Unwrap() error {
	return e.Err
}

// IsAuthoringError returns true if the error is an authoring error.
// Uses errors.As to handle wrapped errors.
func IsAuthoringError(err error) bool {
	var ae *AuthoringError
	return errors.As(err, &ae)
}
