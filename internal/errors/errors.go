package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrSourceUnavailable indicates the raw advisory source for a repository
	// could not be located or read
	ErrSourceUnavailable = errors.New("advisory source unavailable")

	// ErrMalformedIdentifier indicates an advisory code does not match the
	// expected <PREFIX>-<year>:<sequence> shape
	ErrMalformedIdentifier = errors.New("malformed advisory identifier")

	// ErrCorruptAdvisory indicates a required nested node is absent or of an
	// unexpected shape
	ErrCorruptAdvisory = errors.New("corrupt advisory")

	// ErrPersistence indicates the relational store rejected a statement
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound indicates a record was not found in the store
	ErrNotFound = errors.New("not found")
)

// SourceUnavailableError marks a repository whose advisory source could not
// be read. The repository's contribution is treated as empty by callers.
type SourceUnavailableError struct {
	Repo  string
	Cause error
}

func (e *SourceUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("advisory source unavailable: repo=%s: %v", e.Repo, e.Cause)
	}
	return fmt.Sprintf("advisory source unavailable: repo=%s", e.Repo)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceUnavailable creates a new source unavailable error for a repository
func NewSourceUnavailable(repo string, cause error) error {
	return &SourceUnavailableError{Repo: repo, Cause: cause}
}

// MalformedIdentifierError carries the advisory code that failed derivation
type MalformedIdentifierError struct {
	Code   string
	Reason string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed advisory identifier %q: %s", e.Code, e.Reason)
}

func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

// NewMalformedIdentifierf creates a new malformed identifier error with a
// formatted reason
func NewMalformedIdentifierf(code, format string, args ...interface{}) error {
	return &MalformedIdentifierError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// CorruptAdvisoryError carries the raw identifier of the offending advisory,
// or "Unknown" if even that is absent
type CorruptAdvisoryError struct {
	Code  string
	Cause error
}

func (e *CorruptAdvisoryError) Error() string {
	code := e.Code
	if code == "" {
		code = "Unknown"
	}
	if e.Cause != nil {
		return fmt.Sprintf("corrupt advisory %s: %v", code, e.Cause)
	}
	return fmt.Sprintf("corrupt advisory %s", code)
}

func (e *CorruptAdvisoryError) Unwrap() error {
	return e.Cause
}

func (e *CorruptAdvisoryError) Is(target error) bool {
	return target == ErrCorruptAdvisory
}

// NewCorruptAdvisory creates a new corrupt advisory error
func NewCorruptAdvisory(code string, cause error) error {
	return &CorruptAdvisoryError{Code: code, Cause: cause}
}

// NewCorruptAdvisoryf creates a new corrupt advisory error with formatting
func NewCorruptAdvisoryf(code, format string, args ...interface{}) error {
	return &CorruptAdvisoryError{Code: code, Cause: fmt.Errorf(format, args...)}
}

// PersistenceError names the table whose statement was rejected along with
// the values it carried
type PersistenceError struct {
	Table  string
	Values []interface{}
	Cause  error
}

func (e *PersistenceError) Error() string {
	if len(e.Values) > 0 {
		return fmt.Sprintf("persistence error: table=%s values=%v: %v", e.Table, e.Values, e.Cause)
	}
	return fmt.Sprintf("persistence error: table=%s: %v", e.Table, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistence creates a new persistence error for a table
func NewPersistence(table string, values []interface{}, cause error) error {
	return &PersistenceError{Table: table, Values: values, Cause: cause}
}

// IsSourceUnavailable checks if an error marks an unreadable advisory source
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsMalformedIdentifier checks if an error marks a malformed advisory code
func IsMalformedIdentifier(err error) bool {
	return errors.Is(err, ErrMalformedIdentifier)
}

// IsCorruptAdvisory checks if an error marks a structurally corrupt advisory
func IsCorruptAdvisory(err error) bool {
	return errors.Is(err, ErrCorruptAdvisory)
}

// IsPersistence checks if an error marks a rejected store statement
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// AdvisoryCode extracts the advisory code carried by a corrupt advisory or
// malformed identifier error, if any
func AdvisoryCode(err error) (string, bool) {
	var corrupt *CorruptAdvisoryError
	if errors.As(err, &corrupt) {
		if corrupt.Code == "" {
			return "Unknown", true
		}
		return corrupt.Code, true
	}
	var malformed *MalformedIdentifierError
	if errors.As(err, &malformed) {
		return malformed.Code, true
	}
	return "", false
}
