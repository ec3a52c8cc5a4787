// Package notation reads and prints contracts in arrow notation:
//
//	(-> integer? integer? integer?)
//	(->/c (->/c even? odd?) even? even?)
//	(-> (and/c integer? (>/c 0)) (between/c 0 100))
//
// Symbols name predicates in a predicates.Registry or contracts defined
// on the Reader.
package notation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/predicates"
	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
)

// SyntaxError reports malformed notation with a 1-based position.
type SyntaxError struct {
	Source string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location().Position(), e.Msg)
}

// Location returns the error position.
func (e *SyntaxError) Location() srcloc.Location {
	src := e.Source
	if src == "" {
		src = "<input>"
	}
	return srcloc.At(src, e.Line, e.Column)
}

// Reader turns notation into contracts. It is safe for concurrent use.
type Reader struct {
	registry *predicates.Registry
	mu       sync.RWMutex
	defined  map[string]contract.Contract
}

// NewReader returns a reader resolving predicate names in reg. A nil reg
// means the builtin predicates.
func NewReader(reg *predicates.Registry) *Reader {
	if reg == nil {
		reg = predicates.Builtins()
	}
	return &Reader{registry: reg, defined: make(map[string]contract.Contract)}
}

// Define binds name to c so later notation can refer to it.
func (r *Reader) Define(name string, c contract.Contract) error {
	if name == "" || c == nil {
		return fmt.Errorf("notation: cannot define %q", name)
	}
	key := norm.NFC.String(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defined[key]; ok {
		return fmt.Errorf("notation: %q already defined", name)
	}
	if _, ok := r.registry.Lookup(key); ok {
		return fmt.Errorf("notation: %q shadows a predicate", name)
	}
	r.defined[key] = c
	return nil
}

// Lookup resolves a defined contract or a registered predicate.
func (r *Reader) Lookup(name string) (contract.Contract, bool) {
	key := norm.NFC.String(name)
	r.mu.RLock()
	c, ok := r.defined[key]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	if f, ok := r.registry.Lookup(key); ok {
		return f, true
	}
	return nil, false
}

// Read parses exactly one contract from text. source names the text in
// error positions.
func (r *Reader) Read(source, text string) (contract.Contract, error) {
	p := &parser{r: r, lex: newLexer(source, text)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, p.errorf(p.tok, "empty contract")
	}
	c, err := p.contract()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf(p.tok, "unexpected %q after contract", p.tok.text)
	}
	return c, nil
}

// Parse reads text with the builtin predicates only.
func Parse(text string) (contract.Contract, error) {
	return NewReader(nil).Read("", text)
}

// MustParse is Parse for literal notation.
func MustParse(text string) contract.Contract {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

// Print renders c in notation. Reading the result with the same
// registry yields an equivalent contract.
func Print(c contract.Contract) string {
	if c == nil {
		return ""
	}
	return c.String()
}

type parser struct {
	r   *Reader
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Source: p.lex.name, Line: t.line, Column: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) contract() (contract.Contract, error) {
	t := p.tok
	switch t.kind {
	case tokAtom:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, ok := number(t.text); ok {
			return nil, p.errorf(t, "number %s where a contract was expected", t.text)
		}
		c, ok := p.r.Lookup(t.text)
		if !ok {
			return nil, p.errorf(t, "unknown predicate %s", t.text)
		}
		return c, nil
	case tokOpen:
		return p.form()
	case tokClose:
		return nil, p.errorf(t, "unexpected %q", t.text)
	default:
		return nil, p.errorf(t, "unexpected end of input")
	}
}

// form parses a parenthesised form; p.tok is the opening parenthesis.
func (p *parser) form() (contract.Contract, error) {
	open := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	head := p.tok
	if head.kind != tokAtom {
		return nil, p.errorf(head, "expected a contract combinator after %q", open.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch head.text {
	case "->", "->/c":
		parts, err := p.contracts(open)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, p.errorf(head, "%s needs a range contract", head.text)
		}
		fn, err := contract.Arrow(parts...)
		if err != nil {
			return nil, p.errorf(head, "%v", err)
		}
		return fn, nil
	case "and/c", "or/c":
		flats, err := p.flats(open, head)
		if err != nil {
			return nil, err
		}
		if len(flats) == 0 {
			return nil, p.errorf(head, "%s needs at least one predicate", head.text)
		}
		if head.text == "and/c" {
			return predicates.And(flats...), nil
		}
		return predicates.Or(flats...), nil
	case "not/c":
		flats, err := p.flats(open, head)
		if err != nil {
			return nil, err
		}
		if len(flats) != 1 {
			return nil, p.errorf(head, "not/c takes exactly one predicate, got %d", len(flats))
		}
		return predicates.Not(flats[0]), nil
	case "between/c":
		nums, err := p.numbers(open, 2)
		if err != nil {
			return nil, err
		}
		return p.built(head)(predicates.Between(nums[0], nums[1]))
	case ">/c", "</c", "=/c":
		nums, err := p.numbers(open, 1)
		if err != nil {
			return nil, err
		}
		build := map[string]func(any) (*contract.Flat, error){
			">/c": predicates.GreaterThan,
			"</c": predicates.LessThan,
			"=/c": predicates.EqualTo,
		}[head.text]
		return p.built(head)(build(nums[0]))
	default:
		return nil, p.errorf(head, "unknown combinator %s", head.text)
	}
}

func (p *parser) built(head token) func(*contract.Flat, error) (contract.Contract, error) {
	return func(f *contract.Flat, err error) (contract.Contract, error) {
		if err != nil {
			return nil, p.errorf(head, "%v", err)
		}
		return f, nil
	}
}

// contracts parses contracts up to the parenthesis closing open.
func (p *parser) contracts(open token) ([]contract.Contract, error) {
	var out []contract.Contract
	for {
		switch p.tok.kind {
		case tokClose:
			if !matches(open.text, p.tok.text) {
				return nil, p.errorf(p.tok, "%q closes %q opened at %d:%d", p.tok.text, open.text, open.line, open.col)
			}
			return out, p.advance()
		case tokEOF:
			return nil, p.errorf(p.tok, "unclosed %q opened at %d:%d", open.text, open.line, open.col)
		}
		c, err := p.contract()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
}

func (p *parser) flats(open, head token) ([]*contract.Flat, error) {
	start := p.tok
	parts, err := p.contracts(open)
	if err != nil {
		return nil, err
	}
	out := make([]*contract.Flat, 0, len(parts))
	for _, c := range parts {
		f, ok := c.(*contract.Flat)
		if !ok {
			return nil, p.errorf(start, "%s combines predicates only, got %s", head.text, c)
		}
		out = append(out, f)
	}
	return out, nil
}

func (p *parser) numbers(open token, n int) ([]any, error) {
	var out []any
	for p.tok.kind == tokAtom {
		v, ok := number(p.tok.text)
		if !ok {
			return nil, p.errorf(p.tok, "expected a number, got %s", p.tok.text)
		}
		out = append(out, v)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokClose {
		if p.tok.kind == tokEOF {
			return nil, p.errorf(p.tok, "unclosed %q opened at %d:%d", open.text, open.line, open.col)
		}
		return nil, p.errorf(p.tok, "expected a number, got %q", p.tok.text)
	}
	if !matches(open.text, p.tok.text) {
		return nil, p.errorf(p.tok, "%q closes %q opened at %d:%d", p.tok.text, open.text, open.line, open.col)
	}
	if len(out) != n {
		return nil, p.errorf(open, "expected %d numbers, got %d", n, len(out))
	}
	return out, p.advance()
}

func matches(open, close string) bool {
	return (open == "(" && close == ")") || (open == "[" && close == "]")
}

// number parses an exact integer or a decimal literal.
func number(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if !strings.ContainsAny(s, "0123456789") {
		return nil, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}
