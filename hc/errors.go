// Package hc is the HolyC front end: preprocessor, lexer, parser, and
// the TempleOS format-string engine shared with the interpreter.
package hc

import "fmt"

// ParseError is a diagnostic with source provenance. The CLI prints it
// and exits 2.
type ParseError struct {
	Msg  string
	File string
	Line int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

func parseErrorf(file string, line int, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), File: file, Line: line}
}
