package dictionary

import (
	"errors"
	"fmt"
)

// Sentinel errors distinguishing the broad error kinds of spec.md §7.
// Use errors.Is against these to branch on kind; use a *CompileError (via
// errors.As) to recover file/line detail for Parse errors.
var (
	// ErrNotFound covers a missing source directory, a missing expected
	// file inside it, or an unreadable compiled artifact.
	ErrNotFound = errors.New("dictionary: not found")

	// ErrFormat covers a compiled-artifact version mismatch, a truncated
	// section, or a failed integrity check.
	ErrFormat = errors.New("dictionary: malformed artifact")

	// ErrCorrupt covers an invariant violation: a trie value outside the
	// MorphemeList table's range, or any other internally-inconsistent
	// state that indicates artifact corruption rather than bad input.
	ErrCorrupt = errors.New("dictionary: corrupt artifact")

	// ErrEmptyUserDictionary is returned by parsing a syntactically valid
	// but empty user-dictionary file. Per spec.md §7 this is a warning,
	// not a fatal error: callers should treat it as "no user dictionary".
	ErrEmptyUserDictionary = errors.New("dictionary: user dictionary is empty")
)

// CompileError reports a parse failure located at a specific file and line,
// matching spec.md §7's requirement that propagated errors identify the
// file, line number, and offending text.
type CompileError struct {
	File string
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// NewCompileError builds a CompileError for file at the given line number
// (1-based; 0 if not line-oriented).
func NewCompileError(file string, line int, format string, args ...any) *CompileError {
	return &CompileError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}
