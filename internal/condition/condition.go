// Package condition evaluates job conditions as boolean expressions over a
// resolved input set. The language is deliberately small: identifiers,
// boolean/number/string literals, ==, !=, negation, && and || with the usual
// precedence, and parentheses.
package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/sourceplane/pipegate/internal/model"
)

// Evaluate parses and evaluates expr against inputs. An empty expression is
// implicitly true. Referencing an input absent from the resolved config
// fails with model.ErrUndefinedConditionVariable.
func Evaluate(expr string, inputs model.ResolvedConfig) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}

	tokens, err := lex(expr)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", expr, err)
	}

	p := &parser{tokens: tokens, inputs: inputs}
	result, err := p.parseOr()
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", expr, err)
	}
	if !p.done() {
		return false, fmt.Errorf("condition %q: unexpected token %q", expr, p.peek().text)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q: expression is not boolean (got %T)", expr, result)
	}
	return b, nil
}

// Validate parses expr and checks every referenced identifier against the
// declared input names, without needing resolved values. Used at catalog
// load to reject conditions that can never evaluate.
func Validate(expr string, declared map[string]bool) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	tokens, err := lex(expr)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if tok.kind == tokenIdent && !declared[tok.text] {
			return fmt.Errorf("%w: %s", model.ErrUndefinedConditionVariable, tok.text)
		}
	}
	// Parse against a permissive input set to catch structural errors.
	inputs := make(model.ResolvedConfig, len(declared))
	for name := range declared {
		inputs[name] = false
	}
	p := &parser{tokens: tokens, inputs: inputs}
	if _, err := p.parseOr(); err != nil {
		return err
	}
	if !p.done() {
		return fmt.Errorf("unexpected token %q", p.peek().text)
	}
	return nil
}

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenString
	tokenBool
	tokenEq
	tokenNeq
	tokenNot
	tokenAnd
	tokenOr
	tokenLParen
	tokenRParen
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
}

func lex(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokenLParen, "("})
			i++
		case r == ')':
			tokens = append(tokens, token{tokenRParen, ")"})
			i++
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenEq, "=="})
				i += 2
			} else {
				return nil, fmt.Errorf("single '=' at offset %d, use '=='", i)
			}
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenNeq, "!="})
				i += 2
			} else {
				tokens = append(tokens, token{tokenNot, "!"})
				i++
			}
		case r == '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				tokens = append(tokens, token{tokenAnd, "&&"})
				i += 2
			} else {
				return nil, fmt.Errorf("single '&' at offset %d, use '&&'", i)
			}
		case r == '|':
			if i+1 < len(runes) && runes[i+1] == '|' {
				tokens = append(tokens, token{tokenOr, "||"})
				i += 2
			} else {
				return nil, fmt.Errorf("single '|' at offset %d, use '||'", i)
			}
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			tokens = append(tokens, token{tokenString, string(runes[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokenNumber, string(runes[i:j])})
			i = j
		case isIdentRune(r):
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			if word == "true" || word == "false" {
				tokens = append(tokens, token{tokenBool, word})
			} else {
				tokens = append(tokens, token{tokenIdent, word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}

	tokens = append(tokens, token{tokenEOF, ""})
	return tokens, nil
}

// Identifiers follow input-name conventions: letters, digits, '-', '_'.
// A leading digit is lexed as a number instead.
func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

type parser struct {
	tokens []token
	pos    int
	inputs model.ResolvedConfig
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) done() bool {
	return p.peek().kind == tokenEOF
}

func (p *parser) parseOr() (interface{}, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lb, rb, err := bothBool(left, right, "||")
		if err != nil {
			return nil, err
		}
		left = lb || rb
	}
	return left, nil
}

func (p *parser) parseAnd() (interface{}, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lb, rb, err := bothBool(left, right, "&&")
		if err != nil {
			return nil, err
		}
		left = lb && rb
	}
	return left, nil
}

func (p *parser) parseUnary() (interface{}, error) {
	if p.peek().kind == tokenNot {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		b, ok := operand.(bool)
		if !ok {
			return nil, fmt.Errorf("'!' applied to non-boolean %v", operand)
		}
		return !b, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (interface{}, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	op := p.peek().kind
	if op != tokenEq && op != tokenNeq {
		return left, nil
	}
	p.next()

	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	equal := valuesEqual(left, right)
	if op == tokenNeq {
		return !equal, nil
	}
	return equal, nil
}

func (p *parser) parsePrimary() (interface{}, error) {
	tok := p.next()
	switch tok.kind {
	case tokenLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, fmt.Errorf("expected ')', got %q", closing.text)
		}
		return inner, nil
	case tokenBool:
		return tok.text == "true", nil
	case tokenNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number literal %q", tok.text)
		}
		return n, nil
	case tokenString:
		return tok.text, nil
	case tokenIdent:
		value, ok := p.inputs[tok.text]
		if !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrUndefinedConditionVariable, tok.text)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", tok.text)
	}
}

func bothBool(left, right interface{}, op string) (bool, bool, error) {
	lb, lok := left.(bool)
	rb, rok := right.(bool)
	if !lok || !rok {
		return false, false, fmt.Errorf("%q requires boolean operands", op)
	}
	return lb, rb, nil
}

// valuesEqual compares with number normalization so that an int default and
// a float literal compare equal.
func valuesEqual(left, right interface{}) bool {
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			return lf == rf
		}
		return false
	}
	return left == right
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
