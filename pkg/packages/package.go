// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package packages

import (
	"fmt"
	"sort"

	"github.com/datawire/masonry/pkg/python/pep440"
	"github.com/datawire/masonry/pkg/python/pep503"
)

// MainGroup is the name of the runtime dependency group.
const MainGroup = "main"

// A Person is an author or maintainer: either parsed from the
// "Display Name <email@host>" form or declared structurally.
type Person struct {
	Name  string
	Email string
}

func (p Person) String() string {
	switch {
	case p.Name != "" && p.Email != "":
		return fmt.Sprintf("%s <%s>", p.Name, p.Email)
	case p.Email != "":
		return p.Email
	default:
		return p.Name
	}
}

// A License is a literal expression, inline text, or a file reference; at
// most one field is set.  A file reference is read at emission time.
type License struct {
	Expression string
	Text       string
	File       string
}

// ScriptType distinguishes the two script target forms.
type ScriptType int

const (
	// ScriptCallable targets "module(.sub)*:callable".
	ScriptCallable ScriptType = iota
	// ScriptFile targets a file in the source tree, installed into the
	// wheel's scripts directory.
	ScriptFile
)

// A ScriptTarget is the right-hand side of a [project.scripts] entry.
type ScriptTarget struct {
	Reference string
	Type      ScriptType
}

// A DependencyGroup is an ordered, named set of dependencies; the runtime
// group is named "main".
type DependencyGroup struct {
	Name         string
	Dependencies []*Dependency
}

// An IncludeFormat selects which artifact targets a file-selection entry
// applies to.
type IncludeFormat int

const (
	// FormatBoth applies to sdists and wheels.
	FormatBoth IncludeFormat = iota
	// FormatSdist applies to sdists only.
	FormatSdist
	// FormatWheel applies to wheels only.
	FormatWheel
)

// A PackageInclude declares one importable package (or module) shipped by
// the project: "include" is a glob-free path relative to From.
type PackageInclude struct {
	Include string
	From    string // source prefix ("src" for src layouts), "" for flat
	Format  IncludeFormat
}

// A FileInclude declares one extra path (or glob) to ship.  Explicitly
// included files override the VCS ignore list.
type FileInclude struct {
	Path   string
	Format IncludeFormat
}

// A BuildConfig is the manifest's build section: a build script implies
// native extensions and switches the wheel from a pure tag to a platform
// tag.
type BuildConfig struct {
	Script            string
	GenerateSetupFile bool
	Requires          []string // build-requires surfaced by the hook surface
}

// A Package is the root entity a validated manifest produces.  Everything is
// immutable after loading except Version, which a frontend may assign once
// before artifact emission.
type Package struct {
	Name    string
	Version *pep440.Version

	Description    string
	ReadmePaths    []string
	ReadmeText     string
	License        License
	Authors        []Person
	Maintainers    []Person
	Keywords       []string
	Classifiers    []string
	URLs           map[string]string
	RequiresPython pep440.VersionSet

	// Dynamic is the set of metadata fields the project table defers to
	// the legacy table or the backend.
	Dynamic map[string]struct{}

	Groups []*DependencyGroup
	// Extras maps an extras name to the canonical names of the optional
	// main-group dependencies it activates.
	Extras map[string][]string

	Scripts     map[string]ScriptTarget
	EntryPoints map[string]map[string]string

	Packages []PackageInclude
	Include  []FileInclude
	Exclude  []string
	Build    *BuildConfig
}

// CanonicalName returns the PEP 503 canonical form of the package name.
func (pkg *Package) CanonicalName() string {
	return pep503.NormalizeName(pkg.Name)
}

// FilenameName returns the filename-escaped form of the package name used in
// sdist and wheel names.
func (pkg *Package) FilenameName() string {
	return pep503.EscapeName(pkg.Name)
}

// FilenameVersion returns the version as it appears in artifact filenames:
// the normalized public form with "+" escaped to "_".
func (pkg *Package) FilenameVersion() string {
	if pkg.Version == nil {
		panic("package version not set")
	}
	str := pkg.Version.String()
	out := make([]byte, 0, len(str))
	for i := 0; i < len(str); i++ {
		if str[i] == '+' {
			out = append(out, '_')
		} else {
			out = append(out, str[i])
		}
	}
	return string(out)
}

// Group returns the named dependency group, or nil.
func (pkg *Package) Group(name string) *DependencyGroup {
	for _, group := range pkg.Groups {
		if group.Name == name {
			return group
		}
	}
	return nil
}

// AddDependency appends dep to the named group, creating the group on first
// use, and records the membership on the dependency.
func (pkg *Package) AddDependency(groupName string, dep *Dependency) {
	group := pkg.Group(groupName)
	if group == nil {
		group = &DependencyGroup{Name: groupName}
		pkg.Groups = append(pkg.Groups, group)
	}
	group.Dependencies = append(group.Dependencies, dep)
	if !dep.InGroup(groupName) {
		dep.Groups = append(dep.Groups, groupName)
	}
}

// MainDependencies returns the runtime group's dependencies, or nil.
func (pkg *Package) MainDependencies() []*Dependency {
	if group := pkg.Group(MainGroup); group != nil {
		return group.Dependencies
	}
	return nil
}

// ExtraNames returns the extras keys in sorted order.
func (pkg *Package) ExtraNames() []string {
	names := make([]string, 0, len(pkg.Extras))
	for name := range pkg.Extras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// URLNames returns the project URL labels in sorted order.
func (pkg *Package) URLNames() []string {
	names := make([]string, 0, len(pkg.URLs))
	for name := range pkg.URLs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// An InvalidReferenceError reports a name referenced in extras, scripts, or
// entry-points that does not resolve.
type InvalidReferenceError struct {
	Path string // manifest field path, e.g. `project.optional-dependencies.security`
	Name string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s: unknown reference %q", e.Path, e.Name)
}
