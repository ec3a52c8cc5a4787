// Package srcloc describes the source positions that blame is attributed to.
package srcloc

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Location identifies a definition site or a call site.
// Label is a human name for the party at that site (e.g. a module or
// function name) and may be empty.
type Location struct {
	Source string `json:"source,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Unknown is the zero Location.
var Unknown = Location{}

// At builds a Location from explicit coordinates.
func At(source string, line, column int) Location {
	return Location{Source: source, Line: line, Column: column}
}

// Named returns a Location that carries only a label.
func Named(label string) Location {
	return Location{Label: label}
}

// Caller returns the Go source position of the caller, skip frames above
// the function that calls Caller.
func Caller(skip int) Location {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Unknown
	}
	loc := Location{Source: filepath.Base(file), Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		name := fn.Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		loc.Label = name
	}
	return loc
}

// WithLabel returns a copy of l with the label replaced.
func (l Location) WithLabel(label string) Location {
	l.Label = label
	return l
}

// IsKnown reports whether l carries any information.
func (l Location) IsKnown() bool {
	return l != Unknown
}

// Position renders source:line:column, omitting missing parts.
func (l Location) Position() string {
	if l.Source == "" && l.Line == 0 {
		return ""
	}
	src := l.Source
	if src == "" {
		src = "<unknown>"
	}
	switch {
	case l.Line > 0 && l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", src, l.Line, l.Column)
	case l.Line > 0:
		return fmt.Sprintf("%s:%d", src, l.Line)
	default:
		return src
	}
}

// String renders "label (source:line:col)", or whichever part is present.
func (l Location) String() string {
	pos := l.Position()
	switch {
	case l.Label != "" && pos != "":
		return fmt.Sprintf("%s (%s)", l.Label, pos)
	case l.Label != "":
		return l.Label
	case pos != "":
		return pos
	default:
		return "<unknown location>"
	}
}
