// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package packages holds the in-memory model that manifest loading produces:
// the Package root entity, its dependency groups, and the Dependency tagged
// variant covering registry, path, directory, url, and vcs origins.
package packages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/masonry/pkg/python/pep440"
	"github.com/datawire/masonry/pkg/python/pep503"
	"github.com/datawire/masonry/pkg/python/pep508"
)

// SourceKind tags the origin variant of a Dependency.
type SourceKind int

const (
	// SourceRegistry is a dependency resolved from a package index by
	// name and version constraint.
	SourceRegistry SourceKind = iota
	// SourcePath is a dependency on a local archive file.
	SourcePath
	// SourceDirectory is a dependency on a local source tree.
	SourceDirectory
	// SourceURL is a dependency on a remote archive.
	SourceURL
	// SourceVCS is a dependency on a version-control checkout.
	SourceVCS
)

func (kind SourceKind) String() string {
	str, ok := map[SourceKind]string{
		SourceRegistry:  "registry",
		SourcePath:      "path",
		SourceDirectory: "directory",
		SourceURL:       "url",
		SourceVCS:       "vcs",
	}[kind]
	if !ok {
		panic(fmt.Errorf("invalid SourceKind: %d", kind))
	}
	return str
}

// VCSKinds is the closed set of supported version-control systems.
//
//nolint:gochecknoglobals // Would be 'const'.
var VCSKinds = map[string]struct{}{
	"git": {},
	"hg":  {},
	"svn": {},
	"bzr": {},
}

// A Dependency is one requirement of the package being built.  Kind selects
// the origin variant; the fields below it are meaningful per-variant.
// Operations dispatch by switching on Kind rather than by method override.
type Dependency struct {
	Name string

	// Registry variant: the version constraint.  ArbitraryEquality holds
	// the raw operand of a non-PEP-440 "===" clause; such constraints
	// match by string equality only and take part in no ordering.
	Constraint        pep440.VersionSet
	ArbitraryEquality string

	// Path and Directory variants.
	Path    string
	Develop bool

	// URL variant.
	URL string

	// VCS variant.
	VCS          string // "git", "hg", "svn", or "bzr"
	Origin       string // repository URL
	RefKind      string // "branch", "tag", "rev", or "" for the default head
	Ref          string
	Subdirectory string

	Kind SourceKind

	// Common to all variants.
	Extras           []string          // canonically normalized, sorted
	Marker           pep508.Marker     // effective marker; nil when unconditional
	PythonConstraint pep440.VersionSet // per-dependency Python requirement
	Groups           []string
	Optional         bool
	AllowPrereleases bool
}

// CanonicalName returns the PEP 503 canonical form of the dependency name.
func (dep *Dependency) CanonicalName() string {
	return pep503.NormalizeName(dep.Name)
}

// Key returns the identity tuple of the dependency as a string:
// (name, constraint-or-origin, extras, marker).  Two dependencies with equal
// Keys are interchangeable; Key seeds the dependency's hash.
func (dep *Dependency) Key() string {
	var origin string
	switch dep.Kind {
	case SourceRegistry:
		origin = dep.Constraint.String()
		if dep.ArbitraryEquality != "" {
			origin = "===" + dep.ArbitraryEquality
		}
	case SourcePath, SourceDirectory:
		origin = dep.Kind.String() + ":" + dep.Path
	case SourceURL:
		origin = "url:" + dep.URL
	case SourceVCS:
		origin = fmt.Sprintf("%s:%s@%s:%s#%s", dep.VCS, dep.Origin, dep.RefKind, dep.Ref, dep.Subdirectory)
	}
	marker := ""
	if dep.Marker != nil {
		marker = dep.Marker.String()
	}
	return strings.Join([]string{
		dep.CanonicalName(),
		origin,
		strings.Join(dep.Extras, ","),
		marker,
	}, "\x00")
}

// Equal reports whether two dependencies describe the same requirement.  For
// direct-origin variants the version constraint is ignored (two git
// dependencies pinning the same revision are equal whatever constraints they
// were declared with); for registry dependencies it is part of the identity.
func (dep *Dependency) Equal(other *Dependency) bool {
	if dep.Kind != other.Kind || dep.CanonicalName() != other.CanonicalName() {
		return false
	}
	if dep.Kind == SourceRegistry {
		return dep.Key() == other.Key()
	}
	a, b := *dep, *other
	a.Constraint, b.Constraint = pep440.Any(), pep440.Any()
	a.ArbitraryEquality, b.ArbitraryEquality = "", ""
	return a.Key() == b.Key()
}

// InGroup reports whether the dependency is a member of the named group.
func (dep *Dependency) InGroup(group string) bool {
	for _, g := range dep.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// String serializes the dependency into the canonical dependency-string
// grammar.  Registry, URL, file, and rev-pinned VCS dependencies parse back to
// an equal dependency; a directory dependency parses back as a file (path)
// dependency, and a VCS branch or tag parses back as a rev.
func (dep *Dependency) String() string {
	req := pep508.Requirement{
		Name:              dep.Name,
		Extras:            dep.Extras,
		Constraint:        pep440.Any(),
		ArbitraryEquality: dep.ArbitraryEquality,
		Marker:            dep.Marker,
	}
	switch dep.Kind {
	case SourceRegistry:
		req.Constraint = dep.Constraint
	case SourcePath, SourceDirectory:
		req.URL = "file://" + dep.Path
	case SourceURL:
		req.URL = dep.URL
	case SourceVCS:
		url := dep.VCS + "+" + dep.Origin
		if dep.Ref != "" {
			url += "@" + dep.Ref
		}
		if dep.Subdirectory != "" {
			url += "#subdirectory=" + dep.Subdirectory
		}
		req.URL = url
	}
	return req.String()
}

// FromRequirement converts a parsed dependency string into a Dependency,
// classifying direct references by their URL scheme.
func FromRequirement(req *pep508.Requirement) (*Dependency, error) {
	dep := &Dependency{
		Name:              req.Name,
		Constraint:        req.Constraint,
		ArbitraryEquality: req.ArbitraryEquality,
		Extras:            req.Extras,
		Marker:            req.Marker,
		PythonConstraint:  pep440.Any(),
		Kind:              SourceRegistry,
	}
	if req.Marker != nil {
		pythonSet, err := pep508.OnlyPython(req.Marker)
		if err != nil {
			return nil, fmt.Errorf("packages.FromRequirement: %q: %w", req.Name, err)
		}
		dep.PythonConstraint = pythonSet
	}
	if req.URL == "" {
		return dep, nil
	}

	scheme, _, found := strings.Cut(req.URL, "://")
	if !found {
		return nil, fmt.Errorf("packages.FromRequirement: %q: direct reference is not a URL: %q",
			req.Name, req.URL)
	}
	if vcs, _, isVCS := strings.Cut(scheme, "+"); isVCS {
		if _, known := VCSKinds[vcs]; !known {
			return nil, fmt.Errorf("packages.FromRequirement: %q: unsupported VCS %q", req.Name, vcs)
		}
		dep.Kind = SourceVCS
		dep.VCS = vcs
		origin := strings.TrimPrefix(req.URL, vcs+"+")
		if frag := strings.Index(origin, "#"); frag >= 0 {
			for _, param := range strings.Split(origin[frag+1:], "&") {
				if value, ok := strings.CutPrefix(param, "subdirectory="); ok {
					dep.Subdirectory = value
				}
			}
			origin = origin[:frag]
		}
		if at := strings.LastIndex(origin, "@"); at > strings.LastIndex(origin, "/") {
			dep.Ref = origin[at+1:]
			dep.RefKind = "rev"
			origin = origin[:at]
		}
		dep.Origin = origin
		return dep, nil
	}
	if scheme == "file" {
		dep.Kind = SourcePath
		dep.Path = strings.TrimPrefix(req.URL, "file://")
		return dep, nil
	}
	dep.Kind = SourceURL
	dep.URL = req.URL
	return dep, nil
}

// ParseDependency parses a dependency string straight into a Dependency.
func ParseDependency(str string) (*Dependency, error) {
	req, err := pep508.ParseRequirement(str)
	if err != nil {
		return nil, err
	}
	return FromRequirement(req)
}

// An InlineSpec is the structured per-dependency declaration form from the
// manifest ({version = "^1.0", extras = [...], markers = "..."} and friends).
type InlineSpec struct {
	Version string `toml:"version"`

	Path string `toml:"path"`
	URL  string `toml:"url"`

	Git string `toml:"git"`
	Hg  string `toml:"hg"`
	Svn string `toml:"svn"`
	Bzr string `toml:"bzr"`

	Branch string `toml:"branch"`
	Tag    string `toml:"tag"`
	Rev    string `toml:"rev"`

	Subdirectory string `toml:"subdirectory"`

	Extras  []string `toml:"extras"`
	Markers string   `toml:"markers"`
	Python  string   `toml:"python"`

	Optional         bool `toml:"optional"`
	Develop          bool `toml:"develop"`
	AllowPrereleases bool `toml:"allow-prereleases"`

	Source string `toml:"source"`
}

// FromInline validates a structured inline declaration and builds the
// Dependency it describes.  ctx carries the diagnostics logger for the
// non-fatal conditions ("develop" on a kind that cannot honor it).
//
//nolint:gocyclo // one arm per validation rule
func FromInline(ctx context.Context, name string, spec InlineSpec) (*Dependency, error) {
	dep := &Dependency{
		Name:             name,
		Constraint:       pep440.Any(),
		PythonConstraint: pep440.Any(),
		Optional:         spec.Optional,
		AllowPrereleases: spec.AllowPrereleases,
	}

	var origins []string
	if spec.Version != "" {
		origins = append(origins, "version")
	}
	if spec.Path != "" {
		origins = append(origins, "path")
	}
	if spec.URL != "" {
		origins = append(origins, "url")
	}
	var vcsKind, vcsOrigin string
	for kind, origin := range map[string]string{
		"git": spec.Git, "hg": spec.Hg, "svn": spec.Svn, "bzr": spec.Bzr,
	} {
		if origin != "" {
			origins = append(origins, kind)
			vcsKind, vcsOrigin = kind, origin
		}
	}
	if len(origins) != 1 {
		sort.Strings(origins)
		return nil, fmt.Errorf("dependency %q must declare exactly one of version, path, url, or a VCS; got %v",
			name, origins)
	}

	var refs []string
	for _, ref := range []struct{ kind, val string }{
		{"branch", spec.Branch}, {"tag", spec.Tag}, {"rev", spec.Rev},
	} {
		if ref.val != "" {
			refs = append(refs, ref.kind)
			dep.RefKind, dep.Ref = ref.kind, ref.val
		}
	}
	if len(refs) > 1 {
		return nil, fmt.Errorf("dependency %q: branch, tag, and rev are mutually exclusive; got %v",
			name, refs)
	}

	switch origins[0] {
	case "version":
		dep.Kind = SourceRegistry
		set, err := pep440.ParseConstraint(spec.Version)
		var arbErr *pep440.ArbitraryEqualityError
		switch {
		case err == nil:
			dep.Constraint = set.WithPrereleases(spec.AllowPrereleases)
		case errors.As(err, &arbErr):
			dep.ArbitraryEquality = arbErr.Operand
			dep.Constraint = pep440.Empty()
		default:
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
	case "path":
		dep.Kind = SourcePath
		if !strings.Contains(lastPathSegment(spec.Path), ".") {
			dep.Kind = SourceDirectory
		}
		dep.Path = spec.Path
	case "url":
		dep.Kind = SourceURL
		dep.URL = spec.URL
	default:
		dep.Kind = SourceVCS
		dep.VCS = vcsKind
		dep.Origin = vcsOrigin
	}
	dep.Subdirectory = spec.Subdirectory

	if spec.Develop {
		switch dep.Kind {
		case SourceDirectory, SourceVCS:
			dep.Develop = true
		default:
			dlog.Warnf(ctx, "dependency %q: develop = true has no effect on a %s dependency; ignoring",
				name, dep.Kind)
		}
	}
	if len(refs) == 1 && dep.Kind != SourceVCS {
		return nil, fmt.Errorf("dependency %q: %s is only meaningful for VCS dependencies", name, refs[0])
	}

	for _, extra := range spec.Extras {
		extra = strings.TrimSpace(extra)
		if extra != "" {
			dep.Extras = append(dep.Extras, pep503.NormalizeExtra(extra))
		}
	}
	sort.Strings(dep.Extras)

	marker := pep508.Marker(pep508.Always)
	if spec.Markers != "" {
		parsed, err := pep508.ParseMarker(spec.Markers)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		marker = parsed
	}
	if spec.Python != "" {
		pythonSet, err := pep440.ParseConstraint(spec.Python)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: python constraint: %w", name, err)
		}
		dep.PythonConstraint = pythonSet
		marker = pep508.Intersect(marker, pep508.PythonVersionMarker(pythonSet))
	} else if spec.Markers != "" {
		pythonSet, err := pep508.OnlyPython(marker)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		dep.PythonConstraint = pythonSet
	}
	if marker != pep508.Always {
		dep.Marker = marker
	}

	return dep, nil
}

func lastPathSegment(path string) string {
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
