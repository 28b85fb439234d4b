// Copyright © 2024 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFindings = 1
	exitUsage    = 2
)

// exitError carries the exit code a command failed with.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// errFindings is returned by lint when diagnostics were reported. The
// diagnostics themselves have already been written.
var errFindings = &exitError{code: exitFindings, err: errors.New("problems found")}

// usageError marks err as a bad invocation.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitUsage, err: err}
}

// exitCode maps the error returned by a command to the process exit code.
// Errors without an explicit code are bad invocations.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}
