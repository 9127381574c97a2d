// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// The identifier that the node placeholder '_' is renamed to during evaluation.
const exprNodeVar = "node"

// Names of the functions that give the translated program the null semantics of Cypher.
const (
	fnAnd     = "cypherAnd"
	fnOr      = "cypherOr"
	fnNot     = "cypherNot"
	fnCompare = "cypherCompare"
	fnArith   = "cypherArith"
	fnIn      = "cypherIn"
	fnString  = "cypherString"
	fnMatch   = "cypherMatch"
	fnCall    = "cypherCall"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokQuotedIdent
	tokString
	tokNumber
	tokOperator
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

// expression is a compiled Cypher predicate that can be tested against node properties.
type expression struct {
	source  string
	program *vm.Program
}

func compileExpression(source string) (*expression, error) {
	translated, patterns, err := translateExpression(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, source, err)
	}

	program, err := expr.Compile(translated, cypherFunctions(patterns)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, source, err)
	}

	return &expression{
		source:  source,
		program: program,
	}, nil
}

// Matches reports whether the properties satisfy the expression. Only a true result
// matches: null, a value of another type and evaluation errors are all mismatches.
func (e *expression) Matches(props Properties) bool {
	env := map[string]interface{}{
		exprNodeVar: map[string]interface{}(props.Clone()),
	}

	out, err := expr.Run(e.program, env)
	if err != nil {
		return false
	}

	b, ok := out.(bool)
	return ok && b
}

// translateExpression rewrites a Cypher predicate into the expr language. It also
// returns the compiled =~ patterns that the program refers to by index.
func translateExpression(source string) (string, []*regexp.Regexp, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return "", nil, err
	}
	if len(tokens) == 0 {
		return "", nil, fmt.Errorf("empty expression")
	}

	p := &parser{tokens: tokens}
	out, err := p.parseOr()
	if err != nil {
		return "", nil, err
	}
	if t := p.peek(); t != nil {
		return "", nil, fmt.Errorf("unexpected %q", t.text)
	}
	return out, p.patterns, nil
}

// parser is a recursive descent parser over the tokens of a Cypher predicate.
// Each parse method returns the expr source of the production it consumed.
type parser struct {
	tokens   []token
	pos      int
	patterns []*regexp.Regexp
}

func (p *parser) peek() *token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

// keyword reports whether the next tokens are the keywords in words, ignoring case.
func (p *parser) keyword(words ...string) bool {
	for i, w := range words {
		if p.pos+i >= len(p.tokens) {
			return false
		}

		t := p.tokens[p.pos+i]
		if t.kind != tokIdent || !strings.EqualFold(t.text, w) {
			return false
		}
	}
	return true
}

func (p *parser) acceptKeyword(words ...string) bool {
	if p.keyword(words...) {
		p.pos += len(words)
		return true
	}
	return false
}

func (p *parser) accept(kind tokenKind, text string) bool {
	if t := p.peek(); t != nil && t.kind == kind && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) error {
	if p.accept(kind, text) {
		return nil
	}
	if t := p.peek(); t != nil {
		return fmt.Errorf("expected %q, got %q", text, t.text)
	}
	return fmt.Errorf("expected %q at the end of the expression", text)
}

func (p *parser) parseOr() (string, error) {
	left, err := p.parseAnd()
	if err != nil {
		return "", err
	}

	for {
		if p.keyword("XOR") {
			return "", fmt.Errorf("the XOR operator is not supported")
		}
		if !p.acceptKeyword("OR") {
			return left, nil
		}

		right, err := p.parseAnd()
		if err != nil {
			return "", err
		}
		left = call(fnOr, left, right)
	}
}

func (p *parser) parseAnd() (string, error) {
	left, err := p.parseNot()
	if err != nil {
		return "", err
	}

	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return "", err
		}
		left = call(fnAnd, left, right)
	}
	return left, nil
}

func (p *parser) parseNot() (string, error) {
	if p.acceptKeyword("NOT") {
		operand, err := p.parseNot()
		if err != nil {
			return "", err
		}
		return call(fnNot, operand), nil
	}
	return p.parseComparison()
}

// parseComparison handles chained comparisons, so a < b < c means a < b AND b < c.
func (p *parser) parseComparison() (string, error) {
	left, err := p.parsePredicate()
	if err != nil {
		return "", err
	}

	var terms []string
loop:
	for {
		t := p.peek()
		if t == nil || t.kind != tokOperator {
			break
		}

		switch op := t.text; op {
		case "=", "<>", "!=", "<", "<=", ">", ">=":
			p.pos++

			right, err := p.parsePredicate()
			if err != nil {
				return "", err
			}
			terms = append(terms, call(fnCompare, strconv.Quote(op), left, right))
			left = right
		case "=~":
			p.pos++

			pattern := p.peek()
			if pattern == nil || pattern.kind != tokString {
				return "", fmt.Errorf("the =~ operator requires a string pattern")
			}
			p.pos++

			// Cypher patterns must match the entire value
			re, err := regexp.Compile("^(?:" + pattern.text + ")$")
			if err != nil {
				return "", fmt.Errorf("invalid pattern %q: %v", pattern.text, err)
			}
			p.patterns = append(p.patterns, re)
			terms = append(terms, call(fnMatch, left, strconv.Itoa(len(p.patterns)-1)))
		default:
			break loop
		}
	}

	if len(terms) == 0 {
		return left, nil
	}
	return foldAnd(terms), nil
}

func foldAnd(terms []string) string {
	out := terms[0]

	for _, t := range terms[1:] {
		out = call(fnAnd, out, t)
	}
	return out
}

// parsePredicate handles the string, list and null predicates that bind tighter than comparisons.
func (p *parser) parsePredicate() (string, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return "", err
	}

	for {
		var op string
		switch {
		case p.acceptKeyword("STARTS", "WITH"):
			op = "STARTS WITH"
		case p.acceptKeyword("ENDS", "WITH"):
			op = "ENDS WITH"
		case p.acceptKeyword("CONTAINS"):
			op = "CONTAINS"
		case p.keyword("STARTS"):
			return "", fmt.Errorf("expected WITH after STARTS")
		case p.keyword("ENDS"):
			return "", fmt.Errorf("expected WITH after ENDS")
		case p.acceptKeyword("IN"):
			right, err := p.parseAdditive()
			if err != nil {
				return "", err
			}
			left = call(fnIn, left, right)
			continue
		case p.acceptKeyword("IS", "NULL"):
			left = "(" + left + " == nil)"
			continue
		case p.acceptKeyword("IS", "NOT", "NULL"):
			left = "(" + left + " != nil)"
			continue
		case p.keyword("IS"):
			return "", fmt.Errorf("expected NULL or NOT NULL after IS")
		default:
			return left, nil
		}

		right, err := p.parseAdditive()
		if err != nil {
			return "", err
		}
		left = call(fnString, strconv.Quote(op), left, right)
	}
}

func (p *parser) parseAdditive() (string, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (string, error) {
	return p.parseBinary(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseBinary(operand func() (string, error), ops ...string) (string, error) {
	left, err := operand()
	if err != nil {
		return "", err
	}

	for {
		t := p.peek()
		if t == nil || t.kind != tokOperator || !slices.Contains(ops, t.text) {
			return left, nil
		}
		p.pos++

		right, err := operand()
		if err != nil {
			return "", err
		}
		left = call(fnArith, strconv.Quote(t.text), left, right)
	}
}

func (p *parser) parseUnary() (string, error) {
	if p.accept(tokOperator, "-") {
		operand, err := p.parseUnary()
		if err != nil {
			return "", err
		}
		return call(fnArith, strconv.Quote("-"), "0", operand), nil
	}
	if p.accept(tokOperator, "+") {
		return p.parseUnary()
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (string, error) {
	t := p.peek()
	if t == nil {
		return "", fmt.Errorf("unexpected end of the expression")
	}

	switch t.kind {
	case tokNumber:
		p.pos++
		return numberLiteral(t.text)
	case tokString:
		p.pos++
		return strconv.Quote(t.text), nil
	case tokQuotedIdent:
		return "", fmt.Errorf("unexpected quoted name `%s`", t.text)
	case tokPunct:
		switch t.text {
		case "(":
			p.pos++
			inner, err := p.parseOr()
			if err != nil {
				return "", err
			}
			if err := p.expect(tokPunct, ")"); err != nil {
				return "", err
			}
			return "(" + inner + ")", nil
		case "[":
			p.pos++
			return p.parseList()
		}
	case tokIdent:
		p.pos++
		return p.parseIdent(t.text)
	}
	return "", fmt.Errorf("unexpected %q", t.text)
}

func (p *parser) parseList() (string, error) {
	var elems []string

	if p.accept(tokPunct, "]") {
		return "[]", nil
	}
	for {
		elem, err := p.parseOr()
		if err != nil {
			return "", err
		}
		elems = append(elems, elem)

		if p.accept(tokPunct, "]") {
			return "[" + strings.Join(elems, ", ") + "]", nil
		}
		if err := p.expect(tokPunct, ","); err != nil {
			return "", err
		}
	}
}

func (p *parser) parseIdent(name string) (string, error) {
	switch strings.ToUpper(name) {
	case "_":
		return p.parseProperty()
	case "TRUE":
		return "true", nil
	case "FALSE":
		return "false", nil
	case "NULL":
		return "nil", nil
	}

	if !p.accept(tokPunct, "(") {
		return "", fmt.Errorf("unknown identifier %q", name)
	}

	fn := strings.ToLower(name)
	if !slices.Contains([]string{"exists", "size", "tolower", "toupper", "trim"}, fn) {
		return "", fmt.Errorf("the %s function is not supported", name)
	}

	arg, err := p.parseOr()
	if err != nil {
		return "", err
	}
	if err := p.expect(tokPunct, ")"); err != nil {
		return "", err
	}

	if fn == "exists" {
		return "(" + arg + " != nil)", nil
	}
	return call(fnCall, strconv.Quote(fn), arg), nil
}

// parseProperty reads the property access that must follow the node placeholder.
func (p *parser) parseProperty() (string, error) {
	if err := p.expect(tokPunct, "."); err != nil {
		return "", err
	}

	t := p.peek()
	if t == nil || (t.kind != tokIdent && t.kind != tokQuotedIdent) {
		return "", fmt.Errorf("expected a property name after '_.'")
	}
	p.pos++

	if p.peek() != nil && p.peek().kind == tokPunct && p.peek().text == "." {
		return "", fmt.Errorf("nested property access is not supported")
	}
	return exprNodeVar + "[" + strconv.Quote(t.text) + "]", nil
}

// numberLiteral keeps integers as integers and always writes floats with a fraction,
// so that expr does not read 1.5e3 back as an integer.
func numberLiteral(text string) (string, error) {
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return text, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", fmt.Errorf("invalid number %q", text)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func call(name string, args ...string) string {
	return name + "(" + strings.Join(args, ", ") + ")"
}

func tokenize(source string) ([]token, error) {
	var tokens []token

	runes := []rune(source)
	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			text, n, err := readQuoted(runes[i:], r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text})
			i += n
		case r == '`':
			end := i + 1
			for end < len(runes) && runes[end] != '`' {
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("unterminated quoted name")
			}
			tokens = append(tokens, token{kind: tokQuotedIdent, text: string(runes[i+1 : end])})
			i = end + 1
		case unicode.IsDigit(r):
			end := i
			for end < len(runes) && (unicode.IsDigit(runes[end]) || runes[end] == '.' ||
				runes[end] == 'e' || runes[end] == 'E' ||
				((runes[end] == '-' || runes[end] == '+') && (runes[end-1] == 'e' || runes[end-1] == 'E'))) {
				end++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[i:end])})
			i = end
		case r == '_' || unicode.IsLetter(r):
			end := i
			for end < len(runes) && (runes[end] == '_' || unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end])) {
				end++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[i:end])})
			i = end
		case strings.ContainsRune("=<>!", r):
			op := string(r)
			if i+1 < len(runes) {
				switch pair := op + string(runes[i+1]); pair {
				case "=~", "<>", "<=", ">=", "!=":
					op = pair
				}
			}
			if op == "!" {
				return nil, fmt.Errorf("unexpected character '!'")
			}
			tokens = append(tokens, token{kind: tokOperator, text: op})
			i += len([]rune(op))
		case strings.ContainsRune("+-*/%", r):
			tokens = append(tokens, token{kind: tokOperator, text: string(r)})
			i++
		case strings.ContainsRune(".,()[]", r):
			tokens = append(tokens, token{kind: tokPunct, text: string(r)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return tokens, nil
}

// readQuoted reads a string literal starting at runes[0] and
// returns the unescaped value and the number of runes consumed.
func readQuoted(runes []rune, quote rune) (string, int, error) {
	var b strings.Builder

	for i := 1; i < len(runes); i++ {
		r := runes[i]

		if r == quote {
			return b.String(), i + 1, nil
		}
		if r != '\\' {
			b.WriteRune(r)
			continue
		}

		i++
		if i >= len(runes) {
			break
		}
		switch runes[i] {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		default:
			b.WriteRune(runes[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}
