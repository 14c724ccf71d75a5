// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"fmt"
	"regexp"
	"strings"
)

// ArbitraryEqualityError is returned by ParseConstraint for an "===" clause
// whose operand is not a PEP 440 version.  Such clauses are string-equality
// pass-throughs; they participate in no ordering, so they cannot be held in a
// VersionSet.  Callers that support them keep the raw clause instead.
type ArbitraryEqualityError struct {
	Operand string
}

func (e *ArbitraryEqualityError) Error() string {
	return fmt.Sprintf("arbitrary equality of non-PEP-440 operand: %q", e.Operand)
}

var reOpSpace = regexp.MustCompile(`(\^|~=|~|>=|<=|===|==|!=|>|<)\s+`)

// ParseConstraint parses a version constraint into a VersionSet.
//
// Clauses separated by "||" union; clauses separated by "," (or, for
// compatibility with older manifests, bare whitespace) intersect.  Recognized
// clause forms are the PEP 440 operators (">=X", "<X", ">X", "<=X", "==X",
// "!=X", "===X", "~=X.Y"), the shortcut operators "^X.Y.Z" and "~X.Y.Z", the
// wildcards "X.Y.*" / "==X.Y.*" / "!=X.Y.*", a bare version (exact match),
// and "*" (anything).
func ParseConstraint(str string) (VersionSet, error) {
	if set, ok := constraintCacheGet(str); ok {
		return set, nil
	}

	result := Empty()
	for _, orPart := range splitUnion(str) {
		group := Any()
		orPart = reOpSpace.ReplaceAllString(orPart, "$1")
		for _, commaPart := range strings.Split(orPart, ",") {
			for _, clauseStr := range strings.Fields(commaPart) {
				clause, err := parseClause(clauseStr)
				if err != nil {
					return Empty(), fmt.Errorf("pep440.ParseConstraint: %w", err)
				}
				group = group.Intersect(clause)
			}
		}
		result = result.Union(group)
	}
	if strings.TrimSpace(str) == "" {
		result = Any()
	}

	constraintCachePut(str, result)
	return result, nil
}

// MustParseConstraint is ParseConstraint for string literals known to be
// valid.
func MustParseConstraint(str string) VersionSet {
	set, err := ParseConstraint(str)
	if err != nil {
		panic(err)
	}
	return set
}

func splitUnion(str string) []string {
	var parts []string
	for _, part := range strings.Split(str, "||") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

//nolint:gocyclo // one arm per operator
func parseClause(str string) (VersionSet, error) {
	switch str {
	case "", "*":
		return Any(), nil
	}

	var op string
	for _, candidate := range []string{"===", "==", "!=", "~=", ">=", "<=", ">", "<", "^", "~"} {
		if strings.HasPrefix(str, candidate) {
			op = candidate
			break
		}
	}
	operand := strings.TrimSpace(strings.TrimPrefix(str, op))

	// wildcard forms; only valid in a constraint context
	if strings.HasSuffix(operand, ".*") || operand == "*" {
		if op != "" && op != "==" && op != "!=" {
			return Empty(), fmt.Errorf("wildcard not allowed with %q operator: %q", op, str)
		}
		set, err := parseWildcard(strings.TrimSuffix(operand, "*"))
		if err != nil {
			return Empty(), err
		}
		if op == "!=" {
			set = set.Complement()
		}
		return set, nil
	}

	switch op {
	case "===":
		ver, err := ParseVersion(operand)
		if err != nil {
			return Empty(), &ArbitraryEqualityError{Operand: operand}
		}
		return Exactly(*ver), nil
	case "^":
		ver, err := ParseVersion(operand)
		if err != nil {
			return Empty(), fmt.Errorf("caret clause %q: %w", str, err)
		}
		return Between(*ver, ver.nextBreaking()), nil
	case "~":
		ver, err := ParseVersion(operand)
		if err != nil {
			return Empty(), fmt.Errorf("tilde clause %q: %w", str, err)
		}
		idx := 0
		if len(ver.Release) > 1 {
			idx = 1
		}
		upper := LocalVersion{PublicVersion: PublicVersion{
			Epoch:   ver.Epoch,
			Release: ver.bumpedRelease(idx),
		}}
		return Between(*ver, upper), nil
	case "~=":
		ver, err := ParseVersion(operand)
		if err != nil {
			return Empty(), fmt.Errorf("compatible-release clause %q: %w", str, err)
		}
		if len(ver.Release) < 2 {
			return Empty(), fmt.Errorf(
				"at least 2 release segments required in a compatible-release clause: %q", str)
		}
		upper := LocalVersion{PublicVersion: PublicVersion{
			Epoch:   ver.Epoch,
			Release: ver.bumpedRelease(len(ver.Release) - 2),
		}}
		return Between(*ver, upper), nil
	}

	ver, err := ParseVersion(operand)
	if err != nil {
		return Empty(), fmt.Errorf("clause %q: %w", str, err)
	}
	switch op {
	case "", "==":
		return Exactly(*ver), nil
	case "!=":
		return Exactly(*ver).Complement(), nil
	case ">=":
		return AtLeast(*ver), nil
	case ">":
		v := *ver
		return VersionSet{spans: []span{{lower: &v}}}, nil
	case "<=":
		v := *ver
		return VersionSet{spans: []span{{upper: &v, upperInc: true}}}, nil
	case "<":
		return LessThan(*ver), nil
	default:
		panic(fmt.Errorf("unhandled operator: %q", op))
	}
}

// parseWildcard turns the "X.Y." stem of an "X.Y.*" clause into the range
// ">=X.Y,<X.(Y+1)".  A bare "*" stem (empty string) means anything.
func parseWildcard(stem string) (VersionSet, error) {
	stem = strings.TrimSuffix(stem, ".")
	if stem == "" {
		return Any(), nil
	}
	ver, err := ParseVersion(stem)
	if err != nil {
		return Empty(), fmt.Errorf("wildcard stem %q: %w", stem, err)
	}
	if ver.Pre != nil || ver.Post != nil || ver.Dev != nil || len(ver.Local) > 0 {
		return Empty(), fmt.Errorf("wildcard stem %q: only release segments allowed", stem)
	}
	upper := LocalVersion{PublicVersion: PublicVersion{
		Epoch:   ver.Epoch,
		Release: ver.bumpedRelease(len(ver.Release) - 1),
	}}
	return Between(*ver, upper), nil
}
