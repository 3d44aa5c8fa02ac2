package tools

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Calculation queries are evaluated by a small recursive-descent parser
// over numeric literals and + - * / ( ). No general expression engine: the
// allowed-character check below rejects anything else before parsing, so
// arbitrary text can never reach an evaluator.

var calcPrefixes = []string{"calculate", "compute", "what is"}

const calcAllowed = "0123456789+-*/.() "

// Calculate strips the recognized instruction prefixes from the query and
// evaluates the residue if it consists solely of digits and the operator
// set. Anything else yields an error payload, never an evaluation attempt.
func Calculate(query string) map[string]any {
	expr := cleanExpression(query)
	if expr == "" {
		return map[string]any{"error": "invalid calculation - no expression found"}
	}
	for _, r := range expr {
		if !strings.ContainsRune(calcAllowed, r) {
			return map[string]any{"error": "invalid calculation - only basic math operations allowed"}
		}
	}
	result, err := evalExpression(expr)
	if err != nil {
		return map[string]any{"error": "invalid calculation: " + err.Error()}
	}
	return map[string]any{"calculation": query, "result": result}
}

func cleanExpression(query string) string {
	expr := strings.ToLower(query)
	for _, prefix := range calcPrefixes {
		expr = strings.ReplaceAll(expr, prefix, "")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(expr), "?"))
}

// --- tokenizer ---

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	op    byte
	value float64
}

func tokenize(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", expr[i:j])
			}
			toks = append(toks, token{kind: tokNumber, value: v})
			i = j
		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOp, op: c})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	if len(toks) == 0 {
		return nil, errors.New("empty expression")
	}
	return toks, nil
}

// --- parser ---

type parser struct {
	toks []token
	pos  int
}

func evalExpression(expr string) (float64, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, errors.New("unexpected trailing input")
	}
	return v, nil
}

// expr := term { (+|-) term }
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.toks) && p.toks[p.pos].kind == tokOp &&
		(p.toks[p.pos].op == '+' || p.toks[p.pos].op == '-') {
		op := p.toks[p.pos].op
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
	return v, nil
}

// term := factor { (*|/) factor }
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.toks) && p.toks[p.pos].kind == tokOp &&
		(p.toks[p.pos].op == '*' || p.toks[p.pos].op == '/') {
		op := p.toks[p.pos].op
		p.pos++
		rhs, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, errors.New("division by zero")
			}
			v /= rhs
		}
	}
	return v, nil
}

// factor := number | "(" expr ")" | "-" factor
func (p *parser) parseFactor() (float64, error) {
	if p.pos >= len(p.toks) {
		return 0, errors.New("unexpected end of expression")
	}
	tok := p.toks[p.pos]
	switch {
	case tok.kind == tokNumber:
		p.pos++
		return tok.value, nil
	case tok.kind == tokOp && tok.op == '-':
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case tok.kind == tokLParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokRParen {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected token at position %d", p.pos)
	}
}
