// Package apperr defines the error taxonomy shared across the analysis
// pipeline. Expected absences (cache miss, missing evaluation) are modeled as
// values elsewhere; only genuine failures become errors.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeSourceData      = "SOURCE_DATA"
	CodeEvaluation      = "EVALUATION_FAILURE"
	CodeCacheCorruption = "CACHE_CORRUPTION"
	CodeCacheWrite      = "CACHE_WRITE_FAILURE"
	CodeConfiguration   = "CONFIGURATION_ERROR"
)

// Error is an application error carrying a taxonomy code and an optional cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewSourceData reports a fetched game with no usable move text. Callers skip
// the game and continue the batch.
func NewSourceData(gameID string, reason string) *Error {
	return &Error{
		Code:    CodeSourceData,
		Message: fmt.Sprintf("game %s: %s", gameID, reason),
	}
}

// NewEvaluation reports an engine failure on a single position. The position
// is marked missing; the game and the batch continue.
func NewEvaluation(fen string, err error) *Error {
	return &Error{
		Code:    CodeEvaluation,
		Message: fmt.Sprintf("engine failed on position %q", fen),
		Err:     err,
	}
}

// NewCacheCorruption reports a cache payload that failed to parse. The entry
// is removed and the analysis recomputed.
func NewCacheCorruption(key string, err error) *Error {
	return &Error{
		Code:    CodeCacheCorruption,
		Message: fmt.Sprintf("cache entry %s is unreadable", key),
		Err:     err,
	}
}

// NewCacheWrite reports a failed cache write. Logged and swallowed by callers.
func NewCacheWrite(key string, err error) *Error {
	return &Error{
		Code:    CodeCacheWrite,
		Message: fmt.Sprintf("failed to persist cache entry %s", key),
		Err:     err,
	}
}

// NewConfiguration reports an invalid or incomplete configuration. Fatal,
// surfaced before any analysis work begins.
func NewConfiguration(message string) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: message,
	}
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
