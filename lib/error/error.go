/*package error contains the error kinds returned while reading a snapshot and
simple functions for reporting fatal errors from the command line tool.

Every failure in a snapshot load is fatal: there are no transient errors when
reading static files, so nothing here is retried. Callers can tell kinds apart
with errors.Is:

   if errors.Is(err, g_error.TruncatedShard) { ... }
*/
package error

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
)

// Kind is the category of a load failure. Kind implements the error interface
// so that it can be used directly as an errors.Is target.
type Kind int

const (
	// IoError means that a file is missing or couldn't be read.
	IoError Kind = iota + 1
	// MalformedHeader means that a text header doesn't follow its dialect.
	MalformedHeader
	// CountMismatch means that particle counts disagree between the global
	// header, a field header, and the data that was actually read.
	CountMismatch
	// TruncatedShard means that a binary shard is shorter than its header
	// says it is.
	TruncatedShard
	// InvalidConfig means that the loader was configured with a value that
	// no snapshot could satisfy.
	InvalidConfig
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "IoError"
	case MalformedHeader:
		return "MalformedHeader"
	case CountMismatch:
		return "CountMismatch"
	case TruncatedShard:
		return "TruncatedShard"
	case InvalidConfig:
		return "InvalidConfig"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Error() string { return k.String() }

// Error is a load failure. Path is the file being read when things went wrong
// and Name is the attribute, field, or shard involved (it may be empty).
type Error struct {
	Kind Kind
	Path string
	Name string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Path)
	if e.Name != "" {
		s += fmt.Sprintf(" [%s]", e.Name)
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the Kind and the underlying error, if any.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New creates an Error of the given kind. The message has the same signature
// as the standard fmt.*printf() functions.
func New(kind Kind, path, name, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Name: name, Msg: fmt.Sprintf(format, a...)}
}

// Wrap is New, but keeps track of an underlying error.
func Wrap(
	kind Kind, err error, path, name, format string, a ...interface{},
) *Error {
	e := New(kind, path, name, format, a...)
	e.Err = err
	return e
}

// KindOf returns the Kind of err, or 0 if err didn't come from a load.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// External reports an error to stderr and kills the program. It should be
// used when an error is something a user could reasonbly be expected to fix
// through changes in configuration/data/environment. It has the same
// signature at the standard fmt.*printf() functions.
func External(format string, a ...interface{}) {
	log.Printf("mpgio exited early with the following error:\n"+format, a...)
	os.Exit(1)
}

// Internal reports an error to stderr along with a stack trace and kills the
// program. It should be used when the error requires a code dive to fix.
func Internal(format string, a ...interface{}) {
	log.Println("mpgio exited early with the following error:")
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n\n")
	debug.PrintStack()
	os.Exit(1)
}
