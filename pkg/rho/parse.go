package rho

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

// ParseError reports the byte offset where parsing stopped, the text found
// there and the tokens that would have been accepted instead.
type ParseError struct {
	Offset   int
	Found    string
	Expected []string
}

func (e *ParseError) Error() string {
	found := e.Found
	if found == "" {
		found = "end of input"
	}
	return fmt.Sprintf("rho: parse error at offset %d: found %q, expected one of: %s",
		e.Offset, found, strings.Join(e.Expected, ", "))
}

// WithEnv makes the parser resolve identifiers to existing free variables by
// display name. Identifiers bound by an enclosing for(...) still take
// precedence.
func WithEnv(vars ...nominal.Var) Option {
	return func(o *options) { o.env = append(o.env, vars...) }
}

// ParseProc parses a process.
//
// Grammar:
//
//	proc  := unary ('|' unary)*
//	unary := '0' | '*' name | name '!' '(' proc ')'
//	       | 'for' '(' name '->' ident ')' '{' proc '}'
//	       | '(' proc ')' | ident
//	name  := ident | '@' '(' proc ')'
//
// '|' associates to the left. A bare identifier in process position is a
// process variable.
func ParseProc(text string, opts ...Option) (Proc, error) {
	p := newParser(text, opts)
	proc, err := p.proc()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return proc, nil
}

// ParseName parses a name.
func ParseName(text string, opts ...Option) (Name, error) {
	p := newParser(text, opts)
	n, err := p.name()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return n, nil
}

// MustParseProc is ParseProc for inputs known to be valid. It panics on error.
func MustParseProc(text string, opts ...Option) Proc {
	p, err := ParseProc(text, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIllegal
	tokIdent
	tokZero
	tokFor
	tokStar
	tokBang
	tokAt
	tokBar
	tokArrow
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
)

var tokText = map[tokKind]string{
	tokEOF:    "end of input",
	tokIdent:  "identifier",
	tokZero:   "0",
	tokFor:    "for",
	tokStar:   "*",
	tokBang:   "!",
	tokAt:     "@",
	tokBar:    "|",
	tokArrow:  "->",
	tokLParen: "(",
	tokRParen: ")",
	tokLBrace: "{",
	tokRBrace: "}",
}

type token struct {
	kind tokKind
	text string
	off  int
}

type binding struct {
	name string
	v    nominal.Var
}

type parser struct {
	src   string
	pos   int
	tok   token
	alloc *nominal.Allocator
	env   map[string]nominal.Var
	scope []binding
	free  map[string]nominal.Var
}

func newParser(text string, opts []Option) *parser {
	o := buildOptions(opts)
	p := &parser{
		src:   text,
		alloc: o.alloc,
		env:   make(map[string]nominal.Var, len(o.env)),
		free:  make(map[string]nominal.Var),
	}
	for _, v := range o.env {
		p.env[v.String()] = v
	}
	p.next()
	return p
}

// next scans the following token into p.tok.
func (p *parser) next() {
	for p.pos < len(p.src) {
		r, w := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		p.pos += w
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, off: start}
		return
	}
	r, w := utf8.DecodeRuneInString(p.src[p.pos:])
	single := map[rune]tokKind{
		'0': tokZero, '*': tokStar, '!': tokBang, '@': tokAt, '|': tokBar,
		'(': tokLParen, ')': tokRParen, '{': tokLBrace, '}': tokRBrace,
	}
	switch {
	case r == '-' && strings.HasPrefix(p.src[p.pos:], "->"):
		p.pos += 2
		p.tok = token{kind: tokArrow, text: "->", off: start}
	case single[r] != 0:
		p.pos += w
		p.tok = token{kind: single[r], text: string(r), off: start}
	case r == '_' || unicode.IsLetter(r):
		p.pos += w
		for p.pos < len(p.src) {
			r, w := utf8.DecodeRuneInString(p.src[p.pos:])
			if r != '_' && r != '\'' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			p.pos += w
		}
		text := p.src[start:p.pos]
		kind := tokIdent
		if text == "for" {
			kind = tokFor
		}
		p.tok = token{kind: kind, text: text, off: start}
	default:
		p.pos += w
		p.tok = token{kind: tokIllegal, text: string(r), off: start}
	}
}

func (p *parser) errorf(expected ...tokKind) error {
	names := make([]string, len(expected))
	for i, k := range expected {
		names[i] = tokText[k]
	}
	return &ParseError{Offset: p.tok.off, Found: p.tok.text, Expected: names}
}

func (p *parser) expect(k tokKind) (token, error) {
	if p.tok.kind != k {
		return token{}, p.errorf(k)
	}
	t := p.tok
	p.next()
	return t, nil
}

func (p *parser) expectEOF() error {
	if p.tok.kind != tokEOF {
		return p.errorf(tokBar, tokEOF)
	}
	return nil
}

func (p *parser) proc() (Proc, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokBar {
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = NewPPar(left, right)
	}
	return left, nil
}

func (p *parser) unary() (Proc, error) {
	switch p.tok.kind {
	case tokZero:
		p.next()
		return NewPZero(), nil
	case tokStar:
		p.next()
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		return NewPDrop(n), nil
	case tokFor:
		return p.input()
	case tokLParen:
		p.next()
		inner, err := p.proc()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokAt:
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		return p.output(n)
	case tokIdent:
		id := p.tok.text
		p.next()
		v := p.resolve(id)
		if p.tok.kind == tokBang {
			return p.output(NewNVar(v))
		}
		return NewPVar(v), nil
	default:
		return nil, p.errorf(tokZero, tokStar, tokFor, tokLParen, tokAt, tokIdent)
	}
}

func (p *parser) output(n Name) (Proc, error) {
	if _, err := p.expect(tokBang); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	payload, err := p.proc()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return NewPOutput(n, payload), nil
}

func (p *parser) input() (Proc, error) {
	p.next() // for
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	ch, err := p.name()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokArrow); err != nil {
		return nil, err
	}
	id, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	x := p.alloc.Fresh(id.text)
	p.scope = append(p.scope, binding{name: id.text, v: x})
	body, err := p.proc()
	p.scope = p.scope[:len(p.scope)-1]
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return NewPInputBind(ch, x, body), nil
}

func (p *parser) name() (Name, error) {
	switch p.tok.kind {
	case tokIdent:
		v := p.resolve(p.tok.text)
		p.next()
		return NewNVar(v), nil
	case tokAt:
		p.next()
		if _, err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		inner, err := p.proc()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return NewNQuote(inner), nil
	default:
		return nil, p.errorf(tokIdent, tokAt)
	}
}

// resolve maps an identifier to a variable: innermost binder first, then the
// caller's environment, then variables already seen free in this input.
func (p *parser) resolve(id string) nominal.Var {
	for i := len(p.scope) - 1; i >= 0; i-- {
		if p.scope[i].name == id {
			return p.scope[i].v
		}
	}
	if v, ok := p.env[id]; ok {
		return v
	}
	if v, ok := p.free[id]; ok {
		return v
	}
	v := p.alloc.Fresh(id)
	p.free[id] = v
	return v
}
