package notation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokOpen
	tokClose
	tokAtom
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// lexer splits contract notation into parentheses and atoms. Line
// comments start with ';'.
type lexer struct {
	src  string
	off  int
	line int
	col  int
	name string
}

func newLexer(name, src string) *lexer {
	return &lexer{src: src, line: 1, col: 1, name: name}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, line: l.line, col: l.col}, nil
	}
	line, col := l.line, l.col
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	switch r {
	case '(', '[':
		l.advance(r, size)
		return token{kind: tokOpen, text: string(r), line: line, col: col}, nil
	case ')', ']':
		l.advance(r, size)
		return token{kind: tokClose, text: string(r), line: line, col: col}, nil
	case '"', '\'', '`', '#', ',':
		return token{}, &SyntaxError{Source: l.name, Line: line, Column: col, Msg: fmt.Sprintf("unexpected %q", r)}
	}
	var b strings.Builder
	for l.off < len(l.src) {
		r, size = utf8.DecodeRuneInString(l.src[l.off:])
		if unicode.IsSpace(r) || strings.ContainsRune("()[];", r) {
			break
		}
		if r == utf8.RuneError && size == 1 {
			return token{}, &SyntaxError{Source: l.name, Line: l.line, Column: l.col, Msg: "invalid UTF-8"}
		}
		b.WriteRune(r)
		l.advance(r, size)
	}
	return token{kind: tokAtom, text: b.String(), line: line, col: col}, nil
}

func (l *lexer) skipSpace() {
	for l.off < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.off:])
		switch {
		case r == ';':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(rune(l.src[l.off]), 1)
			}
		case unicode.IsSpace(r):
			l.advance(r, size)
		default:
			return
		}
	}
}

func (l *lexer) advance(r rune, size int) {
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
		return
	}
	l.col++
}
