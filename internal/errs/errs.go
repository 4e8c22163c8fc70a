// Package errs defines the typed failures produced while indexing files,
// compiling patterns and executing queries, and the collection type used to
// report them in bulk.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure
type Kind string

const (
	KindPattern     Kind = "pattern"
	KindGlob        Kind = "glob"
	KindIO          Kind = "io"
	KindDecode      Kind = "decode"
	KindUnsupported Kind = "unsupported"
	KindParse       Kind = "parse"
	KindConfig      Kind = "config"
)

// Error is a single typed failure. Query, Language and Path are set when known.
type Error struct {
	Kind     Kind
	Query    string
	Language string
	Path     string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")

	fields := make([]string, 0, 3)
	if e.Query != "" {
		fields = append(fields, "query="+e.Query)
	}
	if e.Language != "" {
		fields = append(fields, "language="+e.Language)
	}
	if e.Path != "" {
		fields = append(fields, "path="+e.Path)
	}
	if len(fields) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(fields, " "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind wrapping err
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf creates an Error of the given kind with a formatted cause
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithQuery returns a copy of e attributed to the named query
func (e *Error) WithQuery(name string) *Error {
	c := *e
	c.Query = name
	return &c
}

// WithLanguage returns a copy of e attributed to a language
func (e *Error) WithLanguage(name string) *Error {
	c := *e
	c.Language = name
	return &c
}

// WithPath returns a copy of e attributed to a file path
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// Collection wraps a non-empty, ordered set of failures from a batch operation.
type Collection struct {
	Errors []error
}

func (c *Collection) Error() string {
	if len(c.Errors) == 1 {
		return c.Errors[0].Error()
	}
	lines := make([]string, 0, len(c.Errors)+1)
	lines = append(lines, fmt.Sprintf("%d errors occurred:", len(c.Errors)))
	for _, err := range c.Errors {
		lines = append(lines, "\t* "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (c *Collection) Unwrap() []error {
	return c.Errors
}

// Len returns the number of collected errors
func (c *Collection) Len() int {
	return len(c.Errors)
}

// Collect returns nil for an empty list, otherwise a *Collection holding the
// non-nil errors in order. Nested collections are flattened.
func Collect(list []error) error {
	flat := Flatten(list...)
	if len(flat) == 0 {
		return nil
	}
	return &Collection{Errors: flat}
}

// Flatten expands nested collections and drops nil entries.
func Flatten(list ...error) []error {
	out := make([]error, 0, len(list))
	for _, err := range list {
		if err == nil {
			continue
		}
		if c, ok := err.(*Collection); ok {
			out = append(out, Flatten(c.Errors...)...)
			continue
		}
		out = append(out, err)
	}
	return out
}

// Of returns the typed errors of kind k found in err
func Of(err error, k Kind) []*Error {
	if err == nil {
		return nil
	}
	var found []*Error
	for _, e := range Flatten(err) {
		var typed *Error
		if errors.As(e, &typed) && typed.Kind == k {
			found = append(found, typed)
		}
	}
	return found
}
