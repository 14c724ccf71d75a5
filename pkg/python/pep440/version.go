// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep440 implements PEP 440 -- Version Identification and Dependency
// Specification: the version scheme itself, and a set-algebra over version
// constraints (intervals, unions, intersections, differences) that the rest of
// the build backend reasons with.
//
// https://peps.python.org/pep-0440/
package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// A Version is a full PEP 440 version identifier, including the optional local
// segment ("1.2.3+ubuntu.1").
type Version = LocalVersion

// A PublicVersion is a PEP 440 public version identifier; everything up to but
// not including the "+local" part.
type PublicVersion struct {
	// Epoch segment: "N!"
	Epoch int
	// Release segment: "N(.N)*"
	Release []int
	// Pre-release segment: "{a|b|rc}N"
	Pre *PreRelease
	// Post-release segment: ".postN"
	Post *int
	// Development release segment: ".devN"
	Dev *int
}

// A PreRelease is the "{a|b|rc}N" part of a version; .L is the canonical
// lowercase letter part ("a", "b", or "rc").
type PreRelease struct {
	L string
	N int
}

// A LocalVersion is a PublicVersion plus the optional local segment.  The
// local segment is a dot-separated list of alphanumeric parts; numeric parts
// compare numerically, alphanumeric parts compare as lowercase strings, and
// numeric parts order after alphanumeric ones.
type LocalVersion struct {
	PublicVersion
	Local []intstr.IntOrString
}

func (ver PublicVersion) writeTo(ret *strings.Builder) {
	if ver.Epoch > 0 {
		fmt.Fprintf(ret, "%d!", ver.Epoch)
	}
	if len(ver.Release) == 0 {
		panic("invalid version: no release segments")
	}
	fmt.Fprintf(ret, "%d", ver.Release[0])
	for _, segment := range ver.Release[1:] {
		fmt.Fprintf(ret, ".%d", segment)
	}
	if ver.Pre != nil {
		fmt.Fprintf(ret, "%s%d", ver.Pre.L, ver.Pre.N)
	}
	if ver.Post != nil {
		fmt.Fprintf(ret, ".post%d", *ver.Post)
	}
	if ver.Dev != nil {
		fmt.Fprintf(ret, ".dev%d", *ver.Dev)
	}
}

// String returns the normalized textual form.  ParseVersion normalizes at
// parse time, so a parsed Version always prints in canonical PEP 440 form.
func (ver PublicVersion) String() string {
	var ret strings.Builder
	ver.writeTo(&ret)
	return ret.String()
}

// String implements fmt.Stringer.
func (ver LocalVersion) String() string {
	var ret strings.Builder
	ver.PublicVersion.writeTo(&ret)
	sep := "+"
	for _, local := range ver.Local {
		ret.WriteString(sep)
		ret.WriteString(local.String())
		sep = "."
	}
	return ret.String()
}

// Key returns a string that is equal for any two versions that compare equal
// under Cmp, even when their textual forms differ ("1.0" and "1.0.0" share a
// Key).  Use it to seed hashes and as a map key.
func (ver LocalVersion) Key() string {
	trimmed := ver
	release := ver.Release
	for len(release) > 1 && release[len(release)-1] == 0 {
		release = release[:len(release)-1]
	}
	trimmed.Release = release
	return trimmed.String()
}

//nolint:gochecknoglobals // Would be 'const'.
var preReleaseOrder = map[string]int{
	"a":  -3,
	"b":  -2,
	"rc": -1,
	// absent: 0
}

func (ver PublicVersion) releaseSegment(n int) int {
	if n < len(ver.Release) {
		return ver.Release[n]
	}
	return 0
}

// Major returns the first release segment.
func (ver PublicVersion) Major() int { return ver.releaseSegment(0) }

// Minor returns the second release segment, zero-padded.
func (ver PublicVersion) Minor() int { return ver.releaseSegment(1) }

// Patch returns the third release segment, zero-padded.
func (ver PublicVersion) Patch() int { return ver.releaseSegment(2) }

// IsPreRelease reports whether the version is an alpha, beta, release
// candidate, or development release.
func (ver PublicVersion) IsPreRelease() bool {
	return ver.Pre != nil || ver.Dev != nil
}

// IsStable reports whether the version is a final or post release.
func (ver PublicVersion) IsStable() bool {
	return !ver.IsPreRelease()
}

func cmpRelease(a, b PublicVersion) int {
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		if diff := a.releaseSegment(i) - b.releaseSegment(i); diff != 0 {
			return diff
		}
	}
	return 0
}

func cmpPreRelease(a, b PublicVersion) int {
	var aL, aN, bL, bN int
	if a.Pre != nil {
		aL, aN = preReleaseOrder[a.Pre.L], a.Pre.N
	} else if a.Dev != nil && a.Post == nil {
		// A bare ".devN" sorts below any pre-release of the same release.
		aL = -4
	}
	if b.Pre != nil {
		bL, bN = preReleaseOrder[b.Pre.L], b.Pre.N
	} else if b.Dev != nil && b.Post == nil {
		bL = -4
	}
	if aL != bL {
		return aL - bL
	}
	return aN - bN
}

func cmpPostRelease(a, b PublicVersion) int {
	aPost, bPost := -1, -1
	if a.Post != nil {
		aPost = *a.Post
	}
	if b.Post != nil {
		bPost = *b.Post
	}
	return aPost - bPost
}

func cmpDevRelease(a, b PublicVersion) int {
	switch {
	case a.Dev == nil && b.Dev == nil:
		return 0
	case a.Dev == nil:
		return 1
	case b.Dev == nil:
		return -1
	default:
		return (*a.Dev) - (*b.Dev)
	}
}

// Cmp returns a number < 0 if version 'a' is less than version 'b', > 0 if
// 'a' is greater than 'b', or 0 if they are equal; similar to the C-language
// strcmp.  The ordering is the PEP 440 total order: epoch, zero-padded
// release, then the suffix order ".devN < aN < bN < rcN < (none) < .postN".
func (a PublicVersion) Cmp(b PublicVersion) int {
	if d := a.Epoch - b.Epoch; d != 0 {
		return d
	}
	if d := cmpRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPreRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPostRelease(a, b); d != 0 {
		return d
	}
	return cmpDevRelease(a, b)
}

func cmpLocalSegment(a, b *intstr.IntOrString) int {
	switch {
	case a == nil && b == nil:
		panic("should not happen: cmpLocal shouldn't have bothered calling this")
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch {
	case a.Type == intstr.Int && b.Type == intstr.Int:
		return int(a.IntVal - b.IntVal)
	case a.Type == intstr.String && b.Type == intstr.String:
		return strings.Compare(a.StrVal, b.StrVal)
	case a.Type == intstr.Int:
		// numeric segments order after alphanumeric ones
		return 1
	default:
		return -1
	}
}

func cmpLocal(a, b LocalVersion) int {
	for i := 0; i < len(a.Local) || i < len(b.Local); i++ {
		var aSeg, bSeg *intstr.IntOrString
		if i < len(a.Local) {
			aSeg = &(a.Local[i])
		}
		if i < len(b.Local) {
			bSeg = &(b.Local[i])
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// Cmp compares two full versions; a local version sorts after the same public
// version without a local segment.
func (a LocalVersion) Cmp(b LocalVersion) int {
	if d := a.PublicVersion.Cmp(b.PublicVersion); d != 0 {
		return d
	}
	return cmpLocal(a, b)
}

// Equal reports whether a and b compare equal under Cmp.
func (a LocalVersion) Equal(b LocalVersion) bool {
	return a.Cmp(b) == 0
}

// WithoutLocal returns the version with the local segment dropped.
func (ver LocalVersion) WithoutLocal() LocalVersion {
	return LocalVersion{PublicVersion: ver.PublicVersion}
}

// Stable returns the stable projection of ver: the release segment alone for
// pre/dev releases (a post segment is kept when there is no pre-release
// part), ver without its local segment for local versions, and ver itself
// otherwise.
func (ver LocalVersion) Stable() LocalVersion {
	if ver.IsStable() && len(ver.Local) == 0 {
		return ver
	}
	stable := LocalVersion{PublicVersion: PublicVersion{
		Epoch:   ver.Epoch,
		Release: ver.Release,
	}}
	if ver.Pre == nil {
		// "1.0.post2.dev3" stabilizes to "1.0.post2"; "1.0a1.post2" to "1.0"
		stable.Post = ver.Post
	}
	return stable
}

func (ver PublicVersion) bumpedRelease(idx int) []int {
	release := make([]int, len(ver.Release))
	copy(release, ver.Release)
	for len(release) <= idx {
		release = append(release, 0)
	}
	release[idx]++
	for i := idx + 1; i < len(release); i++ {
		release[i] = 0
	}
	return release
}

// NextMajor returns the next major release boundary.  The boolean is false
// when ver carries a pre, post, or dev part, in which case the result is
// computed from the stable base and callers should treat it as ambiguous.
func (ver LocalVersion) NextMajor() (LocalVersion, bool) {
	next := LocalVersion{PublicVersion: PublicVersion{
		Epoch:   ver.Epoch,
		Release: ver.bumpedRelease(0),
	}}
	return next, ver.IsStable() && ver.Post == nil && len(ver.Local) == 0
}

// NextMinor is NextMajor one release segment down.
func (ver LocalVersion) NextMinor() (LocalVersion, bool) {
	next := LocalVersion{PublicVersion: PublicVersion{
		Epoch:   ver.Epoch,
		Release: ver.bumpedRelease(1),
	}}
	return next, ver.IsStable() && ver.Post == nil && len(ver.Local) == 0
}

// NextPatch is NextMajor two release segments down.
func (ver LocalVersion) NextPatch() (LocalVersion, bool) {
	next := LocalVersion{PublicVersion: PublicVersion{
		Epoch:   ver.Epoch,
		Release: ver.bumpedRelease(2),
	}}
	return next, ver.IsStable() && ver.Post == nil && len(ver.Local) == 0
}

// nextBreaking returns the caret upper bound: the first non-zero release
// segment is incremented and everything after it zeroed.  For an all-zero
// release the last given segment is incremented instead, so "^0.0.0" means
// ">=0.0.0 <0.0.1".
func (ver LocalVersion) nextBreaking() LocalVersion {
	idx := len(ver.Release) - 1
	for i, seg := range ver.Release {
		if seg != 0 {
			idx = i
			break
		}
	}
	return LocalVersion{PublicVersion: PublicVersion{
		Epoch:   ver.Epoch,
		Release: ver.bumpedRelease(idx),
	}}
}

// The permissive regular expression from the "Appendix B" of PEP 440 (the
// same one the PyPA "packaging" project uses), with normalization applied to
// whatever it accepts.
//
//nolint:lll // source-specification regexp
var reVersion = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

// ParseVersion parses a string into a Version, applying the PEP 440
// normalization rules (case folding, pre-release spelling aliases, implicit
// numbers, separator variants, leading "v", surrounding whitespace).
func ParseVersion(str string) (*Version, error) {
	match := reVersion.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("pep440.ParseVersion: invalid version: %q", str)
	}

	var ver Version
	var err error

	if epoch := match[reVersion.SubexpIndex("epoch")]; epoch != "" {
		ver.Epoch, err = strconv.Atoi(epoch)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseVersion: epoch: %w", err)
		}
	}

	for _, segStr := range strings.Split(match[reVersion.SubexpIndex("release")], ".") {
		segInt, err := strconv.Atoi(segStr)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseVersion: release: %w", err)
		}
		ver.Release = append(ver.Release, segInt)
	}

	if preL := strings.ToLower(match[reVersion.SubexpIndex("pre_l")]); preL != "" {
		canonical, ok := map[string]string{
			"a": "a", "alpha": "a",
			"b": "b", "beta": "b",
			"rc": "rc", "c": "rc", "pre": "rc", "preview": "rc",
		}[preL]
		if !ok {
			return nil, fmt.Errorf("pep440.ParseVersion: invalid pre-release part: %q", preL)
		}
		n := 0
		if preN := match[reVersion.SubexpIndex("pre_n")]; preN != "" {
			if n, err = strconv.Atoi(preN); err != nil {
				return nil, fmt.Errorf("pep440.ParseVersion: pre-release: %w", err)
			}
		}
		ver.Pre = &PreRelease{L: canonical, N: n}
	}

	if post := match[reVersion.SubexpIndex("post")]; post != "" {
		n := 0
		numStr := match[reVersion.SubexpIndex("post_n1")] + match[reVersion.SubexpIndex("post_n2")]
		if numStr != "" {
			if n, err = strconv.Atoi(numStr); err != nil {
				return nil, fmt.Errorf("pep440.ParseVersion: post-release: %w", err)
			}
		}
		ver.Post = &n
	}

	if dev := match[reVersion.SubexpIndex("dev")]; dev != "" {
		n := 0
		if devN := match[reVersion.SubexpIndex("dev_n")]; devN != "" {
			if n, err = strconv.Atoi(devN); err != nil {
				return nil, fmt.Errorf("pep440.ParseVersion: dev-release: %w", err)
			}
		}
		ver.Dev = &n
	}

	localParts := strings.FieldsFunc(match[reVersion.SubexpIndex("local")], func(r rune) bool {
		return strings.ContainsRune("-_.", r)
	})
	for _, part := range localParts {
		ver.Local = append(ver.Local, intstr.Parse(strings.ToLower(part)))
	}

	return &ver, nil
}

// MustParseVersion is ParseVersion for string literals known to be valid.
func MustParseVersion(str string) *Version {
	ver, err := ParseVersion(str)
	if err != nil {
		panic(err)
	}
	return ver
}
