// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep508 implements PEP 508 -- Dependency specification for Python
// Software Packages: the environment-marker expression language and the
// dependency (requirement) string grammar.
//
// https://peps.python.org/pep-0508/
package pep508

import (
	"fmt"
	"strings"

	"github.com/datawire/masonry/pkg/python/pep440"
)

// An Environment maps marker attribute names ("sys_platform", "extra", ...)
// to their values.  Attributes absent from the map evaluate as empty strings.
type Environment map[string]string

// MarkerVars is the closed set of attribute names a marker may reference.
//
//nolint:gochecknoglobals // Would be 'const'.
var MarkerVars = map[string]struct{}{
	"os_name":                        {},
	"sys_platform":                   {},
	"platform_release":               {},
	"platform_system":                {},
	"platform_version":               {},
	"platform_machine":               {},
	"platform_python_implementation": {},
	"python_version":                 {},
	"python_full_version":            {},
	"implementation_name":            {},
	"implementation_version":         {},
	"extra":                          {},
}

// versionVars are the attributes whose atoms project onto pep440.VersionSets
// for range reasoning.
//
//nolint:gochecknoglobals // Would be 'const'.
var versionVars = map[string]struct{}{
	"python_version":      {},
	"python_full_version": {},
}

// A Marker is a boolean expression over an Environment.  The concrete types
// are Atom, AndMarker, OrMarker, and the Always/Never constants.
type Marker interface {
	fmt.Stringer
	Evaluate(env Environment) bool
	dnf() dnfExpr
}

type alwaysMarker struct{}
type neverMarker struct{}

// Always is the marker that holds in every environment; it is the identity
// of Intersect and the result of simplifying away a tautology.
//
//nolint:gochecknoglobals // Would be 'const'.
var Always Marker = alwaysMarker{}

// Never is the marker that holds in no environment; it is the result of
// simplifying a contradiction.
//
//nolint:gochecknoglobals // Would be 'const'.
var Never Marker = neverMarker{}

func (alwaysMarker) String() string              { return "" }
func (alwaysMarker) Evaluate(_ Environment) bool { return true }
func (neverMarker) String() string               { return "<never>" }
func (neverMarker) Evaluate(_ Environment) bool  { return false }

// An Atom is a single "attribute operator literal" comparison.  Reversed
// records that the literal was written on the left ("'linux' in
// sys_platform"), which matters for the substring operators.
type Atom struct {
	Attr     string
	Op       string
	Value    string
	Reversed bool
}

func (atom Atom) String() string {
	if atom.Reversed {
		return fmt.Sprintf("%q %s %s", atom.Value, atom.Op, atom.Attr)
	}
	return fmt.Sprintf("%s %s %q", atom.Attr, atom.Op, atom.Value)
}

// Evaluate compares the environment's value for the atom's attribute against
// the literal.  Ordering operators compare PEP 440-wise when both sides parse
// as versions, and as plain strings otherwise.
func (atom Atom) Evaluate(env Environment) bool {
	envVal := env[atom.Attr]
	switch atom.Op {
	case "in", "not in":
		var container, needle string
		if atom.Reversed {
			container, needle = envVal, atom.Value
		} else {
			container, needle = atom.Value, envVal
		}
		found := containsAlternative(container, needle)
		if atom.Op == "in" {
			return found
		}
		return !found
	case "===":
		return envVal == atom.Value
	}

	envVer, envErr := pep440.ParseVersion(envVal)
	litVer, litErr := pep440.ParseVersion(atom.Value)
	if envErr == nil && litErr == nil {
		return compareVersions(*envVer, atom.Op, *litVer)
	}
	return compareStrings(envVal, atom.Op, atom.Value)
}

// containsAlternative implements the marker "in" test: when the container is
// a "|"- or whitespace-separated list, membership means matching one of the
// alternatives; otherwise it is a plain substring test.
func containsAlternative(container, needle string) bool {
	alternatives := strings.FieldsFunc(container, func(r rune) bool {
		return r == '|' || r == ' ' || r == '\t'
	})
	if len(alternatives) > 1 {
		for _, alt := range alternatives {
			if alt == needle {
				return true
			}
		}
		return false
	}
	return strings.Contains(container, needle)
}

func compareVersions(envVer pep440.Version, op string, litVer pep440.Version) bool {
	switch op {
	case "~=":
		set, err := pep440.ParseConstraint("~=" + litVer.String())
		if err != nil {
			return false
		}
		return set.WithPrereleases(true).Contains(envVer)
	}
	c := envVer.Cmp(litVer)
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	default:
		return false
	}
}

func compareStrings(envVal, op, litVal string) bool {
	c := strings.Compare(envVal, litVal)
	switch op {
	case "==", "~=":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	default:
		return false
	}
}

// An AndMarker is the conjunction of its children.
type AndMarker struct {
	Children []Marker
}

func (m AndMarker) Evaluate(env Environment) bool {
	for _, child := range m.Children {
		if !child.Evaluate(env) {
			return false
		}
	}
	return true
}

func (m AndMarker) String() string {
	parts := make([]string, 0, len(m.Children))
	for _, child := range m.Children {
		str := child.String()
		if _, isOr := child.(OrMarker); isOr {
			str = "(" + str + ")"
		}
		parts = append(parts, str)
	}
	return strings.Join(parts, " and ")
}

// An OrMarker is the disjunction of its children.
type OrMarker struct {
	Children []Marker
}

func (m OrMarker) Evaluate(env Environment) bool {
	for _, child := range m.Children {
		if child.Evaluate(env) {
			return true
		}
	}
	return false
}

func (m OrMarker) String() string {
	parts := make([]string, 0, len(m.Children))
	for _, child := range m.Children {
		parts = append(parts, child.String())
	}
	return strings.Join(parts, " or ")
}

// And conjoins markers, eagerly dropping Always children and collapsing to
// Never on any Never child.
func And(children ...Marker) Marker {
	kept := make([]Marker, 0, len(children))
	for _, child := range children {
		switch child := child.(type) {
		case nil, alwaysMarker:
			continue
		case neverMarker:
			return Never
		case AndMarker:
			kept = append(kept, child.Children...)
		default:
			kept = append(kept, child)
		}
	}
	switch len(kept) {
	case 0:
		return Always
	case 1:
		return kept[0]
	default:
		return AndMarker{Children: kept}
	}
}

// Or disjoins markers, eagerly dropping Never children and collapsing to
// Always on any Always child.
func Or(children ...Marker) Marker {
	kept := make([]Marker, 0, len(children))
	for _, child := range children {
		switch child := child.(type) {
		case nil, neverMarker:
			continue
		case alwaysMarker:
			return Always
		case OrMarker:
			kept = append(kept, child.Children...)
		default:
			kept = append(kept, child)
		}
	}
	switch len(kept) {
	case 0:
		return Never
	case 1:
		return kept[0]
	default:
		return OrMarker{Children: kept}
	}
}

// ParseMarker parses a marker expression.  The empty string parses to Always.
func ParseMarker(str string) (Marker, error) {
	if strings.TrimSpace(str) == "" {
		return Always, nil
	}
	lex := &lexer{input: str}
	marker, err := parseOr(lex)
	if err != nil {
		return nil, fmt.Errorf("pep508.ParseMarker: %w", err)
	}
	tok, err := lex.next()
	if err != nil {
		return nil, fmt.Errorf("pep508.ParseMarker: %w", err)
	}
	if tok.kind != tokEOF {
		return nil, fmt.Errorf("pep508.ParseMarker: unexpected trailing %s", tok)
	}
	return marker, nil
}

// MustParseMarker is ParseMarker for string literals known to be valid.
func MustParseMarker(str string) Marker {
	marker, err := ParseMarker(str)
	if err != nil {
		panic(err)
	}
	return marker
}

func parseOr(lex *lexer) (Marker, error) {
	var children []Marker
	for {
		child, err := parseAnd(lex)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		tok, err := lex.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokIdent || tok.val != "or" {
			break
		}
		_, _ = lex.next()
	}
	return Or(children...), nil
}

func parseAnd(lex *lexer) (Marker, error) {
	var children []Marker
	for {
		child, err := parseFactor(lex)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		tok, err := lex.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokIdent || tok.val != "and" {
			break
		}
		_, _ = lex.next()
	}
	return And(children...), nil
}

func parseFactor(lex *lexer) (Marker, error) {
	tok, err := lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokLParen {
		_, _ = lex.next()
		inner, err := parseOr(lex)
		if err != nil {
			return nil, err
		}
		closing, err := lex.next()
		if err != nil {
			return nil, err
		}
		if closing.kind != tokRParen {
			return nil, lex.errorf(closing.pos, "expected \")\", got %s", closing)
		}
		return inner, nil
	}
	return parseAtom(lex)
}

//nolint:gocyclo // straight-line token handling
func parseAtom(lex *lexer) (Marker, error) {
	lhs, err := lex.next()
	if err != nil {
		return nil, err
	}
	if lhs.kind != tokIdent && lhs.kind != tokString {
		return nil, lex.errorf(lhs.pos, "expected an attribute or string, got %s", lhs)
	}

	opTok, err := lex.next()
	if err != nil {
		return nil, err
	}
	var op string
	switch {
	case opTok.kind == tokOp:
		op = opTok.val
	case opTok.kind == tokIdent && opTok.val == "in":
		op = "in"
	case opTok.kind == tokIdent && opTok.val == "not":
		inTok, err := lex.next()
		if err != nil {
			return nil, err
		}
		if inTok.kind != tokIdent || inTok.val != "in" {
			return nil, lex.errorf(inTok.pos, "expected \"in\" after \"not\", got %s", inTok)
		}
		op = "not in"
	default:
		return nil, lex.errorf(opTok.pos, "expected an operator, got %s", opTok)
	}
	if _, ok := map[string]struct{}{
		"==": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
		"~=": {}, "===": {}, "in": {}, "not in": {},
	}[op]; !ok {
		return nil, lex.errorf(opTok.pos, "unrecognized operator %q", op)
	}

	rhs, err := lex.next()
	if err != nil {
		return nil, err
	}
	if rhs.kind != tokIdent && rhs.kind != tokString {
		return nil, lex.errorf(rhs.pos, "expected an attribute or string, got %s", rhs)
	}

	switch {
	case lhs.kind == tokIdent && rhs.kind == tokString:
		if _, ok := MarkerVars[lhs.val]; !ok {
			return nil, lex.errorf(lhs.pos, "unrecognized marker attribute %q", lhs.val)
		}
		return Atom{Attr: lhs.val, Op: op, Value: rhs.val}, nil
	case lhs.kind == tokString && rhs.kind == tokIdent:
		if _, ok := MarkerVars[rhs.val]; !ok {
			return nil, lex.errorf(rhs.pos, "unrecognized marker attribute %q", rhs.val)
		}
		if op == "in" || op == "not in" {
			return Atom{Attr: rhs.val, Op: op, Value: lhs.val, Reversed: true}, nil
		}
		return Atom{Attr: rhs.val, Op: flipOp(op), Value: lhs.val}, nil
	default:
		return nil, lex.errorf(lhs.pos, "one side of a comparison must be an attribute")
	}
}

func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op
	}
}
