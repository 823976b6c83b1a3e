/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"errors"
	"fmt"
)

// ExitCode is the process exit status for a run.
type ExitCode int

const (
	Success                   ExitCode = 0
	ConfigurationError        ExitCode = 1
	SourceCodeConnectionError ExitCode = 2
	CodeAnalysisError         ExitCode = 3
	AiConnectorError          ExitCode = 4
	UnknownError              ExitCode = 5
)

func (c ExitCode) String() string {
	switch c {
	case Success:
		return "Success"
	case ConfigurationError:
		return "ConfigurationError"
	case SourceCodeConnectionError:
		return "SourceCodeConnectionError"
	case CodeAnalysisError:
		return "CodeAnalysisError"
	case AiConnectorError:
		return "AiConnectorError"
	case UnknownError:
		return "UnknownError"
	default:
		return fmt.Sprintf("ExitCode(%d)", int(c))
	}
}

// RunError is a terminal failure of a run.
type RunError struct {
	Code ExitCode
	Err  error
}

func (e *RunError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }

func (e *RunError) Unwrap() error { return e.Err }

func fail(code ExitCode, format string, args ...any) *RunError {
	return &RunError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCodeOf maps err to a process exit code. nil is Success and errors
// that are not a *RunError are UnknownError.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return Success
	}
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return UnknownError
}
