// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"strings"
)

// A span is one contiguous interval of versions.  A nil bound means the
// interval is unbounded on that side.
type span struct {
	lower    *Version
	lowerInc bool
	upper    *Version
	upperInc bool
}

// A VersionSet is a canonicalized set of versions: a sorted list of disjoint,
// non-adjacent spans.  VersionSet is closed under Union, Intersect,
// Complement, and Difference.  The zero value is the empty set.
//
// Pre-releases are excluded from membership tests unless the set was built
// with pre-releases allowed, or the span a candidate falls in carries a
// pre-release bound itself.
type VersionSet struct {
	spans    []span
	allowPre bool
}

// Empty returns the set containing no versions.
func Empty() VersionSet {
	return VersionSet{}
}

// Any returns the set containing every version.
func Any() VersionSet {
	return VersionSet{spans: []span{{}}}
}

// Exactly returns the set containing just ver.
func Exactly(ver Version) VersionSet {
	v := ver
	return VersionSet{spans: []span{{lower: &v, lowerInc: true, upper: &v, upperInc: true}}}
}

// AtLeast returns the set ">=ver".
func AtLeast(ver Version) VersionSet {
	v := ver
	return VersionSet{spans: []span{{lower: &v, lowerInc: true}}}
}

// LessThan returns the set "<ver".
func LessThan(ver Version) VersionSet {
	v := ver
	return VersionSet{spans: []span{{upper: &v}}}
}

// Between returns the half-open set ">=lower,<upper".
func Between(lower, upper Version) VersionSet {
	lo, hi := lower, upper
	return VersionSet{spans: []span{{lower: &lo, lowerInc: true, upper: &hi}}}
}

// WithPrereleases returns the same set with pre-release membership switched
// on or off explicitly.
func (set VersionSet) WithPrereleases(allow bool) VersionSet {
	set.allowPre = allow
	return set
}

// AllowsPrereleases reports whether the set admits pre-releases globally.
func (set VersionSet) AllowsPrereleases() bool {
	if set.allowPre {
		return true
	}
	for _, sp := range set.spans {
		if sp.hasPreBound() {
			return true
		}
	}
	return false
}

func (sp span) hasPreBound() bool {
	return (sp.lower != nil && sp.lower.IsPreRelease()) ||
		(sp.upper != nil && sp.upper.IsPreRelease())
}

// cmpLower orders two lower bounds; nil is negative infinity, and at the same
// version an inclusive bound starts before an exclusive one.
func cmpLower(aV *Version, aInc bool, bV *Version, bInc bool) int {
	switch {
	case aV == nil && bV == nil:
		return 0
	case aV == nil:
		return -1
	case bV == nil:
		return 1
	}
	if c := aV.Cmp(*bV); c != 0 {
		return c
	}
	switch {
	case aInc == bInc:
		return 0
	case aInc:
		return -1
	default:
		return 1
	}
}

// cmpUpper orders two upper bounds; nil is positive infinity, and at the same
// version an exclusive bound ends before an inclusive one.
func cmpUpper(aV *Version, aInc bool, bV *Version, bInc bool) int {
	switch {
	case aV == nil && bV == nil:
		return 0
	case aV == nil:
		return 1
	case bV == nil:
		return -1
	}
	if c := aV.Cmp(*bV); c != 0 {
		return c
	}
	switch {
	case aInc == bInc:
		return 0
	case aInc:
		return 1
	default:
		return -1
	}
}

// viable reports whether a span with the given bounds contains at least one
// point.
func (sp span) viable() bool {
	if sp.lower == nil || sp.upper == nil {
		return true
	}
	if c := sp.lower.Cmp(*sp.upper); c != 0 {
		return c < 0
	}
	return sp.lowerInc && sp.upperInc
}

func (sp span) contains(ver Version) bool {
	if sp.lower != nil {
		c := ver.Cmp(*sp.lower)
		if c < 0 || (c == 0 && !sp.lowerInc) {
			return false
		}
	}
	if sp.upper != nil {
		c := ver.Cmp(*sp.upper)
		if c > 0 || (c == 0 && !sp.upperInc) {
			return false
		}
	}
	return true
}

// touches reports whether b starts inside of or immediately adjacent to a, so
// that the two merge into one contiguous span.  b must not start before a.
func (a span) touches(b span) bool {
	if a.upper == nil || b.lower == nil {
		return true
	}
	if c := b.lower.Cmp(*a.upper); c != 0 {
		return c < 0
	}
	return a.upperInc || b.lowerInc
}

// canonicalize sorts spans and merges overlapping or adjacent neighbors.
func canonicalize(spans []span) []span {
	viable := make([]span, 0, len(spans))
	for _, sp := range spans {
		if sp.viable() {
			viable = append(viable, sp)
		}
	}
	spans = viable
	if len(spans) == 0 {
		return nil
	}

	sortSpans(spans)

	merged := spans[:1]
	for _, next := range spans[1:] {
		cur := &merged[len(merged)-1]
		if cur.touches(next) {
			if cmpUpper(next.upper, next.upperInc, cur.upper, cur.upperInc) > 0 {
				cur.upper, cur.upperInc = next.upper, next.upperInc
			}
		} else {
			merged = append(merged, next)
		}
	}
	return merged
}

func sortSpans(spans []span) {
	// insertion sort; span lists are tiny
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0; j-- {
			c := cmpLower(spans[j].lower, spans[j].lowerInc, spans[j-1].lower, spans[j-1].lowerInc)
			if c == 0 {
				c = cmpUpper(spans[j].upper, spans[j].upperInc, spans[j-1].upper, spans[j-1].upperInc)
			}
			if c >= 0 {
				break
			}
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}

// IsEmpty reports whether the set contains no versions.
func (set VersionSet) IsEmpty() bool {
	return len(set.spans) == 0
}

// IsAny reports whether the set contains every version.
func (set VersionSet) IsAny() bool {
	return len(set.spans) == 1 && set.spans[0].lower == nil && set.spans[0].upper == nil
}

// Contains reports whether ver is a member of the set, honoring the
// pre-release admission rules.
func (set VersionSet) Contains(ver Version) bool {
	for _, sp := range set.spans {
		if !sp.contains(ver) {
			continue
		}
		if ver.IsPreRelease() && !set.allowPre && !sp.hasPreBound() {
			return false
		}
		return true
	}
	return false
}

// Union returns the set of versions in either set.
func (set VersionSet) Union(other VersionSet) VersionSet {
	spans := make([]span, 0, len(set.spans)+len(other.spans))
	spans = append(spans, set.spans...)
	spans = append(spans, other.spans...)
	return VersionSet{
		spans:    canonicalize(spans),
		allowPre: set.allowPre || other.allowPre,
	}
}

// Intersect returns the set of versions in both sets.
func (set VersionSet) Intersect(other VersionSet) VersionSet {
	var spans []span
	for _, a := range set.spans {
		for _, b := range other.spans {
			out := a
			if cmpLower(b.lower, b.lowerInc, out.lower, out.lowerInc) > 0 {
				out.lower, out.lowerInc = b.lower, b.lowerInc
			}
			if cmpUpper(b.upper, b.upperInc, out.upper, out.upperInc) < 0 {
				out.upper, out.upperInc = b.upper, b.upperInc
			}
			if out.viable() {
				spans = append(spans, out)
			}
		}
	}
	return VersionSet{
		spans:    canonicalize(spans),
		allowPre: set.allowPre && other.allowPre,
	}
}

// Complement returns the set of versions not in the set.
func (set VersionSet) Complement() VersionSet {
	if set.IsEmpty() {
		return Any().WithPrereleases(set.allowPre)
	}
	var spans []span
	var cursor *span // upper bound of the previous span, or nil at -inf
	first := set.spans[0]
	if first.lower != nil {
		spans = append(spans, span{upper: first.lower, upperInc: !first.lowerInc})
	}
	cursor = &first
	for _, sp := range set.spans[1:] {
		spans = append(spans, span{
			lower:    cursor.upper,
			lowerInc: !cursor.upperInc,
			upper:    sp.lower,
			upperInc: !sp.lowerInc,
		})
		cur := sp
		cursor = &cur
	}
	if cursor.upper != nil {
		spans = append(spans, span{lower: cursor.upper, lowerInc: !cursor.upperInc})
	}
	return VersionSet{spans: canonicalize(spans), allowPre: set.allowPre}
}

// Difference returns the set of versions in set but not in other.
func (set VersionSet) Difference(other VersionSet) VersionSet {
	return set.Intersect(other.Complement())
}

// AllowsAll reports whether every member of other is a member of set.
func (set VersionSet) AllowsAll(other VersionSet) bool {
	return other.Difference(set).IsEmpty()
}

// AllowsAny reports whether the two sets share at least one member.
func (set VersionSet) AllowsAny(other VersionSet) bool {
	return !set.Intersect(other).IsEmpty()
}

// Bounds returns the outermost bounds of the set; nil means unbounded on that
// side.  Both are nil for the empty set.
func (set VersionSet) Bounds() (lower, upper *Version) {
	if set.IsEmpty() {
		return nil, nil
	}
	return set.spans[0].lower, set.spans[len(set.spans)-1].upper
}

// A SpanView is the read-only description of one interval of a VersionSet.
// Exact is non-nil when the interval holds a single version.
type SpanView struct {
	Lower          *Version
	LowerInclusive bool
	Upper          *Version
	UpperInclusive bool
	Exact          *Version
}

// Spans returns the intervals of the set, sorted and disjoint.
func (set VersionSet) Spans() []SpanView {
	views := make([]SpanView, 0, len(set.spans))
	for _, sp := range set.spans {
		views = append(views, SpanView{
			Lower:          sp.lower,
			LowerInclusive: sp.lowerInc,
			Upper:          sp.upper,
			UpperInclusive: sp.upperInc,
			Exact:          sp.exact(),
		})
	}
	return views
}

func (sp span) exact() *Version {
	if sp.lower != nil && sp.upper != nil && sp.lowerInc && sp.upperInc &&
		sp.lower.Cmp(*sp.upper) == 0 {
		return sp.lower
	}
	return nil
}

func (sp span) writeTo(ret *strings.Builder) {
	if v := sp.exact(); v != nil {
		ret.WriteString("==")
		ret.WriteString(v.String())
		return
	}
	sep := ""
	if sp.lower != nil {
		if sp.lowerInc {
			ret.WriteString(">=")
		} else {
			ret.WriteString(">")
		}
		ret.WriteString(sp.lower.String())
		sep = ","
	}
	if sp.upper != nil {
		ret.WriteString(sep)
		if sp.upperInc {
			ret.WriteString("<=")
		} else {
			ret.WriteString("<")
		}
		ret.WriteString(sp.upper.String())
	}
}

// String returns the canonical constraint form: "*" for the full set, spans
// as "==V" or ">=A,<B" clauses, disjoint spans joined by " || ".
func (set VersionSet) String() string {
	if set.IsEmpty() {
		return "<empty>"
	}
	if set.IsAny() {
		return "*"
	}
	var ret strings.Builder
	for i, sp := range set.spans {
		if i > 0 {
			ret.WriteString(" || ")
		}
		sp.writeTo(&ret)
	}
	return ret.String()
}
