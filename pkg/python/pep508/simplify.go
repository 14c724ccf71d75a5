// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508

import (
	"github.com/datawire/masonry/pkg/python/pep440"
	"github.com/datawire/masonry/pkg/python/pep503"
)

// A conj is a conjunction of atoms; a dnfExpr is a disjunction of
// conjunctions.  The empty dnfExpr is Never; a dnfExpr containing an empty
// conj is Always.
type (
	conj    []Atom
	dnfExpr []conj
)

func (alwaysMarker) dnf() dnfExpr { return dnfExpr{conj{}} }
func (neverMarker) dnf() dnfExpr  { return dnfExpr{} }
func (atom Atom) dnf() dnfExpr    { return dnfExpr{conj{atom}} }

func (m AndMarker) dnf() dnfExpr {
	result := dnfExpr{conj{}}
	for _, child := range m.Children {
		childDNF := child.dnf()
		var next dnfExpr
		for _, left := range result {
			for _, right := range childDNF {
				merged := make(conj, 0, len(left)+len(right))
				merged = append(merged, left...)
				merged = append(merged, right...)
				next = append(next, merged)
			}
		}
		result = next
	}
	return result
}

func (m OrMarker) dnf() dnfExpr {
	var result dnfExpr
	for _, child := range m.Children {
		result = append(result, child.dnf()...)
	}
	return result
}

func fromDNF(expr dnfExpr) Marker {
	disjuncts := make([]Marker, 0, len(expr))
	for _, c := range expr {
		atoms := make([]Marker, 0, len(c))
		for _, atom := range c {
			atoms = append(atoms, atom)
		}
		disjuncts = append(disjuncts, And(atoms...))
	}
	return Or(disjuncts...)
}

// Intersect returns a simplified marker equivalent to "a and b": the
// conjunction is normalized to DNF, contradictory conjunctions are dropped,
// atoms on the same attribute are merged (range atoms on python_version /
// python_full_version via VersionSet intersection, other atoms via literal
// implication), and redundant conjunctions are absorbed.
func Intersect(a, b Marker) Marker {
	return simplify(And(a, b))
}

// Union returns a simplified marker equivalent to "a or b".
func Union(a, b Marker) Marker {
	return simplify(Or(a, b))
}

func simplify(m Marker) Marker {
	var kept dnfExpr
	for _, c := range m.dnf() {
		simplified, possible := simplifyConj(c)
		if possible {
			kept = append(kept, simplified)
		}
	}
	return fromDNF(absorb(kept))
}

// absorb removes duplicate conjunctions and conjunctions that are strict
// supersets of another (in a disjunction, the weaker conjunction wins).
func absorb(expr dnfExpr) dnfExpr {
	keys := make([]map[string]struct{}, len(expr))
	for i, c := range expr {
		keys[i] = make(map[string]struct{}, len(c))
		for _, atom := range c {
			keys[i][atom.String()] = struct{}{}
		}
	}
	var kept dnfExpr
	for i, c := range expr {
		absorbed := false
		for j := range expr {
			if i == j {
				continue
			}
			if isSubset(keys[j], keys[i]) && (len(keys[j]) < len(keys[i]) || j < i) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			kept = append(kept, c)
		}
	}
	return kept
}

func isSubset(sub, super map[string]struct{}) bool {
	if len(sub) > len(super) {
		return false
	}
	for key := range sub {
		if _, ok := super[key]; !ok {
			return false
		}
	}
	return true
}

// simplifyConj merges the atoms of one conjunction; the boolean is false when
// the conjunction is contradictory and the whole disjunct must be dropped.
func simplifyConj(c conj) (conj, bool) {
	mergeable := make(map[string][]Atom)
	var passthrough []Atom
	var order []string
	for _, atom := range c {
		if atom.Reversed || atom.Op == "in" || atom.Op == "not in" || atom.Op == "===" {
			passthrough = append(passthrough, atom)
			continue
		}
		if _, seen := mergeable[atom.Attr]; !seen {
			order = append(order, atom.Attr)
		}
		mergeable[atom.Attr] = append(mergeable[atom.Attr], atom)
	}

	var out conj
	for _, attr := range order {
		atoms := mergeable[attr]
		var merged []Atom
		var possible bool
		if _, isVersion := versionVars[attr]; isVersion {
			merged, possible = mergeVersionAtoms(attr, atoms)
		} else {
			merged, possible = mergeLiteralAtoms(attr, atoms)
		}
		if !possible {
			return nil, false
		}
		out = append(out, merged...)
	}
	out = append(out, dedupeAtoms(passthrough)...)
	return out, true
}

// mergeVersionAtoms projects comparison atoms on a python version attribute
// onto a VersionSet, intersects them, and re-emits canonical atoms.  Atoms
// that do not convert cleanly (or a multi-interval result) are kept verbatim.
func mergeVersionAtoms(attr string, atoms []Atom) ([]Atom, bool) {
	set := pep440.Any()
	for _, atom := range atoms {
		clause, err := pep440.ParseConstraint(atom.Op + atom.Value)
		if err != nil {
			return dedupeAtoms(atoms), true
		}
		set = set.Intersect(clause)
	}
	if set.IsEmpty() {
		return nil, false
	}
	merged, ok := setToAtoms(attr, set)
	if !ok {
		return dedupeAtoms(atoms), true
	}
	return merged, true
}

// setToAtoms renders a single-interval VersionSet back into marker atoms.
func setToAtoms(attr string, set pep440.VersionSet) ([]Atom, bool) {
	if set.IsAny() {
		return nil, true
	}
	spans := set.Spans()
	if len(spans) != 1 {
		return nil, false
	}
	sp := spans[0]
	if sp.Exact != nil {
		return []Atom{{Attr: attr, Op: "==", Value: sp.Exact.String()}}, true
	}
	var atoms []Atom
	if sp.Lower != nil {
		op := ">"
		if sp.LowerInclusive {
			op = ">="
		}
		atoms = append(atoms, Atom{Attr: attr, Op: op, Value: sp.Lower.String()})
	}
	if sp.Upper != nil {
		op := "<"
		if sp.UpperInclusive {
			op = "<="
		}
		atoms = append(atoms, Atom{Attr: attr, Op: op, Value: sp.Upper.String()})
	}
	return atoms, true
}

// mergeLiteralAtoms applies literal implication between "==" and "!=" atoms
// on one non-version attribute.  The "extra" attribute is exempt from the
// equality contradiction rule: a dependency may be gated on several extras at
// once, and each install request supplies its own set.
func mergeLiteralAtoms(attr string, atoms []Atom) ([]Atom, bool) {
	var eqValues []string
	var out []Atom
	for _, atom := range atoms {
		if atom.Op == "==" {
			eqValues = append(eqValues, atom.Value)
		}
	}
	if attr != "extra" && len(eqValues) > 1 {
		for _, val := range eqValues[1:] {
			if val != eqValues[0] {
				return nil, false
			}
		}
	}
	for _, atom := range atoms {
		if atom.Op == "!=" && attr != "extra" {
			contradicted := false
			implied := false
			for _, eq := range eqValues {
				if eq == atom.Value {
					contradicted = true
				} else {
					implied = true
				}
			}
			if contradicted {
				return nil, false
			}
			if implied {
				continue
			}
		}
		out = append(out, atom)
	}
	return dedupeAtoms(out), true
}

func dedupeAtoms(atoms []Atom) []Atom {
	seen := make(map[string]struct{}, len(atoms))
	var out []Atom
	for _, atom := range atoms {
		key := atom.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, atom)
	}
	return out
}

// ExcludeExtra removes "extra == name" conjuncts from the marker and returns
// the residual; used when emitting wheel metadata to separate a dependency's
// core condition from its extras gate.
func ExcludeExtra(m Marker, extra string) Marker {
	var kept dnfExpr
	for _, c := range m.dnf() {
		var residual conj
		for _, atom := range c {
			if atom.Attr == "extra" && atom.Op == "==" && !atom.Reversed &&
				normalizeExtraValue(atom.Value) == normalizeExtraValue(extra) {
				continue
			}
			residual = append(residual, atom)
		}
		kept = append(kept, residual)
	}
	return fromDNF(absorb(kept))
}

func normalizeExtraValue(val string) string {
	return pep503.NormalizeExtra(val)
}

// PythonVersionMarker renders a VersionSet as a marker over python_version:
// the inverse of OnlyPython, used when a structured per-dependency Python
// constraint is folded into the dependency's marker.
func PythonVersionMarker(set pep440.VersionSet) Marker {
	if set.IsAny() {
		return Always
	}
	if set.IsEmpty() {
		return Never
	}
	var disjuncts []Marker
	for _, sp := range set.Spans() {
		var atoms []Marker
		switch {
		case sp.Exact != nil:
			atoms = append(atoms, Atom{Attr: "python_version", Op: "==", Value: sp.Exact.String()})
		default:
			if sp.Lower != nil {
				op := ">"
				if sp.LowerInclusive {
					op = ">="
				}
				atoms = append(atoms, Atom{Attr: "python_version", Op: op, Value: sp.Lower.String()})
			}
			if sp.Upper != nil {
				op := "<"
				if sp.UpperInclusive {
					op = "<="
				}
				atoms = append(atoms, Atom{Attr: "python_version", Op: op, Value: sp.Upper.String()})
			}
		}
		disjuncts = append(disjuncts, And(atoms...))
	}
	return Or(disjuncts...)
}

// OnlyPython projects the marker onto a VersionSet over Python versions: the
// union, across disjuncts, of the intersection of each disjunct's
// python_version / python_full_version range atoms.  A marker that never
// mentions Python does not constrain it, so the projection of such a marker
// (and of Always) is the full set.
func OnlyPython(m Marker) (pep440.VersionSet, error) {
	expr := m.dnf()
	if len(expr) == 0 {
		return pep440.Empty(), nil
	}
	result := pep440.Empty()
	for _, c := range expr {
		conjSet := pep440.Any()
		for _, atom := range c {
			if _, isVersion := versionVars[atom.Attr]; !isVersion || atom.Reversed {
				continue
			}
			switch atom.Op {
			case "==", "!=", "<", "<=", ">", ">=", "~=":
				clause, err := pep440.ParseConstraint(atom.Op + atom.Value)
				if err != nil {
					return pep440.Empty(), err
				}
				conjSet = conjSet.Intersect(clause)
			}
		}
		result = result.Union(conjSet)
	}
	return result, nil
}
