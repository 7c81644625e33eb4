package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rookdaemon/agora/agoraerr"
)

// cliError is a subcommand failure with a stable machine-readable reason,
// printed as {"status":"failed","reason":"<kind>"} on stdout per the CLI's
// JSON-on-stdout-always convention.
type cliError struct {
	reason string
	cause  error
}

func (e *cliError) Error() string {
	if e.cause == nil {
		return e.reason
	}
	return fmt.Sprintf("%s: %v", e.reason, e.cause)
}

func (e *cliError) Unwrap() error { return e.cause }

// fail wraps cause under reason. When cause already carries an
// agoraerr.Kind, that kind is used as the reason instead, so callers don't
// need to re-derive what already failed deeper in the stack.
func fail(reason string, cause error) *cliError {
	var aerr *agoraerr.Error
	if errors.As(cause, &aerr) {
		reason = string(aerr.Kind)
	}
	return &cliError{reason: reason, cause: cause}
}

func printSuccess(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFailureAndReturn(err error) error {
	var ce *cliError
	reason := "internal_error"
	if errors.As(err, &ce) {
		reason = ce.reason
	}
	_ = printSuccess(map[string]string{"status": "failed", "reason": reason})
	return err
}
