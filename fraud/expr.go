// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package fraud

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// value is a DSL runtime value: float64, bool, or nil (indeterminate).
type value any

// expr is a parsed rule node. eval returns nil when an operand is
// missing or an operation is applied to mismatched types; the caller
// maps nil to an indeterminate check result.
type expr interface {
	eval(operands map[string]value) value
}

type literal struct{ v value }

func (e literal) eval(map[string]value) value { return e.v }

type operand struct{ name string }

func (e operand) eval(operands map[string]value) value {
	return operands[e.name]
}

type not struct{ inner expr }

func (e not) eval(operands map[string]value) value {
	b, ok := e.inner.eval(operands).(bool)
	if !ok {
		return nil
	}
	return !b
}

type logical struct {
	op          string // "&&" or "||"
	left, right expr
}

func (e logical) eval(operands map[string]value) value {
	l, lok := e.left.eval(operands).(bool)
	r, rok := e.right.eval(operands).(bool)
	if !lok || !rok {
		return nil
	}
	if e.op == "&&" {
		return l && r
	}
	return l || r
}

type comparison struct {
	op          string
	left, right expr
}

func (e comparison) eval(operands map[string]value) value {
	l := e.left.eval(operands)
	r := e.right.eval(operands)
	if lf, lok := l.(float64); lok {
		rf, rok := r.(float64)
		if !rok {
			return nil
		}
		switch e.op {
		case "==":
			return lf == rf
		case "!=":
			return lf != rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		}
		return nil
	}
	if lb, lok := l.(bool); lok {
		rb, rok := r.(bool)
		if !rok {
			return nil
		}
		switch e.op {
		case "==":
			return lb == rb
		case "!=":
			return lb != rb
		}
		return nil
	}
	return nil
}

// parseRule parses the boolean rule DSL: comparisons over operands and
// literals, combined with !, && and ||, with the usual precedence
// (! binds tightest, then comparison, then &&, then ||).
func parseRule(input string) (expr, error) {
	p := &parser{tokens: nil}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p.tokens = tokens
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q", p.tokens[p.pos])
	}
	return e, nil
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "||" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logical{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&&" {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = logical{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	switch op := p.peek(); op {
	case "==", "!=", "<", "<=", ">", ">=":
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return comparison{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (expr, error) {
	if p.peek() == "!" {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return not{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.next()
	switch {
	case t == "":
		return nil, fmt.Errorf("unexpected end of rule")
	case t == "(":
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return e, nil
	case t == "true":
		return literal{v: true}, nil
	case t == "false":
		return literal{v: false}, nil
	case unicode.IsDigit(rune(t[0])) || t[0] == '-' || t[0] == '.':
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", t)
		}
		return literal{v: f}, nil
	case isIdentStart(rune(t[0])):
		return operand{name: t}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t)
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdent(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func lex(input string) ([]string, error) {
	var tokens []string
	s := strings.TrimSpace(input)
	for i := 0; i < len(s); {
		r := rune(s[i])
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			tokens = append(tokens, string(r))
			i++
		case r == '&' || r == '|':
			if i+1 >= len(s) || s[i+1] != s[i] {
				return nil, fmt.Errorf("bad operator at %q", s[i:])
			}
			tokens = append(tokens, s[i:i+2])
			i += 2
		case r == '!' || r == '<' || r == '>' || r == '=':
			if i+1 < len(s) && s[i+1] == '=' {
				tokens = append(tokens, s[i:i+2])
				i += 2
			} else if r == '=' {
				return nil, fmt.Errorf("bad operator at %q", s[i:])
			} else {
				tokens = append(tokens, string(r))
				i++
			}
		case unicode.IsDigit(r) || r == '.' ||
			(r == '-' && i+1 < len(s) && (unicode.IsDigit(rune(s[i+1])) || s[i+1] == '.')):
			j := i + 1
			for j < len(s) && (unicode.IsDigit(rune(s[j])) || s[j] == '.') {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		case isIdentStart(r):
			j := i + 1
			for j < len(s) && isIdent(rune(s[j])) {
				j++
			}
			tokens = append(tokens, s[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return tokens, nil
}
