// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/datawire/masonry/pkg/python/pep440"
	"github.com/datawire/masonry/pkg/python/pep503"
)

// A Requirement is one parsed dependency string:
//
//	name[extra1,extra2] (>=1.0,<2.0) ; python_version >= "3.8"
//	name @ https://example.com/name-1.0.tar.gz
//
// Exactly one of Constraint / ArbitraryEquality / URL describes the origin;
// Constraint is pep440.Any for a bare "name".
type Requirement struct {
	Name       string
	Extras     []string // canonically normalized, sorted
	Constraint pep440.VersionSet
	// ArbitraryEquality is the raw operand of an "===" clause whose operand
	// is not a PEP 440 version; it matches by string equality only.
	ArbitraryEquality string
	URL               string
	Marker            Marker // nil when the requirement has no marker
}

var reReqName = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)

// ParseRequirement parses a PEP 508 dependency string.
func ParseRequirement(str string) (*Requirement, error) {
	head, markerStr := splitOnSemicolon(str)

	ret := &Requirement{Constraint: pep440.Any()}

	head = strings.TrimSpace(head)
	nameMatch := reReqName.FindString(head)
	if nameMatch == "" {
		return nil, fmt.Errorf("pep508.ParseRequirement: no package name in %q", str)
	}
	ret.Name = nameMatch
	head = strings.TrimSpace(head[len(nameMatch):])

	if strings.HasPrefix(head, "[") {
		end := strings.Index(head, "]")
		if end < 0 {
			return nil, fmt.Errorf("pep508.ParseRequirement: unterminated extras in %q", str)
		}
		for _, extra := range strings.Split(head[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			ret.Extras = append(ret.Extras, pep503.NormalizeExtra(extra))
		}
		sort.Strings(ret.Extras)
		ret.Extras = dedupeStrings(ret.Extras)
		head = strings.TrimSpace(head[end+1:])
	}

	switch {
	case strings.HasPrefix(head, "@"):
		url := strings.TrimSpace(head[1:])
		if url == "" {
			return nil, fmt.Errorf("pep508.ParseRequirement: empty URL in %q", str)
		}
		ret.URL = url
	case head != "":
		if strings.HasPrefix(head, "(") && strings.HasSuffix(head, ")") {
			head = strings.TrimSpace(head[1 : len(head)-1])
		}
		constraint, err := pep440.ParseConstraint(head)
		var arbErr *pep440.ArbitraryEqualityError
		switch {
		case err == nil:
			ret.Constraint = constraint
		case errors.As(err, &arbErr):
			ret.ArbitraryEquality = arbErr.Operand
			ret.Constraint = pep440.Empty()
		default:
			return nil, fmt.Errorf("pep508.ParseRequirement: %q: %w", str, err)
		}
	}

	if strings.TrimSpace(markerStr) != "" {
		marker, err := ParseMarker(markerStr)
		if err != nil {
			return nil, fmt.Errorf("pep508.ParseRequirement: %q: %w", str, err)
		}
		ret.Marker = marker
	}

	return ret, nil
}

// splitOnSemicolon splits a requirement string at the first semicolon that is
// not inside a quoted literal.
func splitOnSemicolon(str string) (head, tail string) {
	var quote byte
	for i := 0; i < len(str); i++ {
		switch b := str[i]; {
		case quote != 0:
			if b == quote {
				quote = 0
			}
		case b == '\'' || b == '"':
			quote = b
		case b == ';':
			return str[:i], str[i+1:]
		}
	}
	return str, ""
}

// String serializes the requirement back into the canonical dependency-string
// form; ParseRequirement(req.String()) is the identity.
func (req Requirement) String() string {
	var ret strings.Builder
	ret.WriteString(req.Name)
	if len(req.Extras) > 0 {
		ret.WriteString("[")
		ret.WriteString(strings.Join(req.Extras, ","))
		ret.WriteString("]")
	}
	switch {
	case req.URL != "":
		ret.WriteString(" @ ")
		ret.WriteString(req.URL)
	case req.ArbitraryEquality != "":
		ret.WriteString(" (===")
		ret.WriteString(req.ArbitraryEquality)
		ret.WriteString(")")
	case !req.Constraint.IsAny():
		ret.WriteString(" (")
		ret.WriteString(req.Constraint.String())
		ret.WriteString(")")
	}
	if req.Marker != nil && req.Marker != Always {
		ret.WriteString(" ; ")
		ret.WriteString(req.Marker.String())
	}
	return ret.String()
}

func dedupeStrings(sorted []string) []string {
	var out []string
	for _, str := range sorted {
		if len(out) == 0 || out[len(out)-1] != str {
			out = append(out, str)
		}
	}
	return out
}
