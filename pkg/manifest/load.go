// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads a TOML project manifest and assembles the validated
// packages.Package that the build planner and artifact emitters consume.
//
// Two tables are recognized: the standardized `[project]` table and the
// legacy `[tool.masonry]` table.  A field declared in `[project]` must not be
// re-declared in the legacy table unless `[project]` lists it in `dynamic`;
// fields listed in `dynamic` are supplied by the legacy table, whose value
// wins.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"
	"github.com/pelletier/go-toml/v2"

	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/python/pep440"
	"github.com/datawire/masonry/pkg/python/pep503"
	"github.com/datawire/masonry/pkg/python/pep508"
)

// Filename is the manifest's fixed name at the source root.
const Filename = "pyproject.toml"

// Options adjust validation strictness.
type Options struct {
	// AllowCustomClassifiers downgrades unknown trove classifiers from an
	// error to a warning.
	AllowCustomClassifiers bool
}

// Load reads and validates the manifest at the root of srcDir.
func Load(ctx context.Context, srcDir string, opts Options) (*packages.Package, error) {
	filename := filepath.Join(srcDir, Filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("manifest.Load: %w", err)
	}
	return Parse(ctx, filename, data, opts)
}

// Parse validates manifest bytes.  Validation errors are collected, not
// fail-fast: the returned error is a derror.MultiError naming every invalid
// field path.
func Parse(ctx context.Context, filename string, data []byte, opts Options) (*packages.Package, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &SyntaxError{Filename: filename, Err: err}
	}
	for key := range raw {
		switch key {
		case "project", "tool", "build-system":
		default:
			dlog.Warnf(ctx, "%s: ignoring unknown top-level table %q", filename, key)
		}
	}

	var schema fileSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		return nil, &SchemaError{Path: "(document)", Msg: "shape mismatch", Err: err}
	}

	loader := &loader{
		ctx:     ctx,
		opts:    opts,
		project: schema.Project,
		legacy:  schema.Tool.Masonry,
		build:   schema.BuildSystem,

		rawProject: subTable(raw, "project"),
		rawLegacy:  subTable(subTable(raw, "tool"), "masonry"),

		dynamic: make(map[string]struct{}),
	}
	pkg := loader.load()
	if len(loader.errs) > 0 {
		return nil, error(loader.errs)
	}
	return pkg, nil
}

func subTable(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil {
		return nil
	}
	sub, _ := raw[key].(map[string]interface{})
	return sub
}

type loader struct {
	ctx  context.Context
	opts Options

	project *projectTable
	legacy  *legacyTable
	build   *buildSystemTable

	rawProject map[string]interface{}
	rawLegacy  map[string]interface{}

	dynamic map[string]struct{}
	errs    derror.MultiError
}

func (ld *loader) errorf(fieldPath, format string, args ...interface{}) {
	ld.errs = append(ld.errs, schemaErrorf(fieldPath, format, args...))
}

func (ld *loader) warnf(format string, args ...interface{}) {
	dlog.Warnf(ld.ctx, format, args...)
}

// legacyFields maps each legacy table key to the `[project]` field it
// shadows; keys with no modern counterpart map to "".
//
//nolint:gochecknoglobals // Would be 'const'.
var legacyFields = map[string]string{
	"name":          "name",
	"version":       "version",
	"description":   "description",
	"readme":        "readme",
	"license":       "license",
	"authors":       "authors",
	"maintainers":   "maintainers",
	"keywords":      "keywords",
	"classifiers":   "classifiers",
	"homepage":      "urls",
	"repository":    "urls",
	"documentation": "urls",
	"urls":          "urls",
	"scripts":       "scripts",
	"plugins":       "entry-points",
	"dependencies":  "dependencies",
	"extras":        "optional-dependencies",

	"dev-dependencies": "",
	"group":            "",
	"packages":         "",
	"include":          "",
	"exclude":          "",
	"build":            "",
}

func (ld *loader) load() *packages.Package {
	if ld.project == nil && ld.legacy == nil {
		ld.errorf("(document)", "neither a [project] table nor a [tool.masonry] table is present")
		return nil
	}

	if ld.project != nil {
		for _, field := range ld.project.Dynamic {
			if field == "name" {
				ld.errorf("project.dynamic", `"name" must not be dynamic`)
				continue
			}
			ld.dynamic[field] = struct{}{}
		}
	}
	ld.reconcile()

	pkg := &packages.Package{
		URLs:        make(map[string]string),
		Extras:      make(map[string][]string),
		Scripts:     make(map[string]packages.ScriptTarget),
		EntryPoints: make(map[string]map[string]string),
		Dynamic:     ld.dynamic,
	}

	ld.loadIdentity(pkg)
	ld.loadMetadata(pkg)
	ld.loadDependencies(pkg)
	ld.loadExtras(pkg)
	ld.loadScripts(pkg)
	ld.loadEntryPoints(pkg)
	ld.loadFileSelection(pkg)
	ld.loadBuild(pkg)

	return pkg
}

// reconcile enforces the dual-schema rule: a field declared in [project] must
// not be re-declared in [tool.masonry] unless [project] lists it in dynamic.
func (ld *loader) reconcile() {
	if ld.project == nil || ld.legacy == nil {
		return
	}
	reported := make(map[string]struct{})
	keys := make([]string, 0, len(ld.rawLegacy))
	for key := range ld.rawLegacy {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, legacyKey := range keys {
		modernField, known := legacyFields[legacyKey]
		if !known {
			ld.warnf("tool.masonry: ignoring unknown key %q", legacyKey)
			continue
		}
		if modernField == "" {
			continue // legacy-only concern (groups, file selection, build)
		}
		if _, isDynamic := ld.dynamic[modernField]; isDynamic {
			continue
		}
		if !ld.modernDeclares(modernField) {
			ld.warnf("tool.masonry.%s: ignoring; [project] owns %q and does not list it in dynamic",
				legacyKey, modernField)
			continue
		}
		if _, dup := reported[modernField]; dup {
			continue
		}
		reported[modernField] = struct{}{}
		ld.errorf("tool.masonry."+legacyKey,
			"field %q is already declared in [project] and is not listed in project.dynamic",
			modernField)
	}
}

func (ld *loader) modernDeclares(field string) bool {
	_, ok := ld.rawProject[field]
	return ok
}

// useLegacy reports whether the legacy table supplies the given modern field.
func (ld *loader) useLegacy(field string) bool {
	if ld.legacy == nil {
		return false
	}
	if ld.project == nil {
		return true
	}
	_, isDynamic := ld.dynamic[field]
	return isDynamic && ld.legacyDeclares(field)
}

func (ld *loader) legacyDeclares(modernField string) bool {
	for legacyKey, field := range legacyFields {
		if field != modernField {
			continue
		}
		if _, ok := ld.rawLegacy[legacyKey]; ok {
			return true
		}
	}
	return false
}

func (ld *loader) loadIdentity(pkg *packages.Package) {
	var name, namePath string
	switch {
	case ld.project != nil:
		name, namePath = ld.project.Name, "project.name"
	default:
		name, namePath = ld.legacy.Name, "tool.masonry.name"
	}
	if name == "" {
		ld.errorf(namePath, "a package name is required")
	} else if !pep503.ValidName(name) || pep503.NormalizeName(name) == "" {
		ld.errorf(namePath, "invalid package name %q", name)
	}
	pkg.Name = name

	var version, versionPath string
	switch {
	case ld.useLegacy("version"):
		version, versionPath = ld.legacy.Version, "tool.masonry.version"
	case ld.project != nil:
		version, versionPath = ld.project.Version, "project.version"
	default:
		version, versionPath = ld.legacy.Version, "tool.masonry.version"
	}
	_, versionDynamic := ld.dynamic["version"]
	switch {
	case version == "" && versionDynamic:
		// a frontend may assign the version before emission
	case version == "":
		ld.errorf(versionPath, "a package version is required (or list \"version\" in project.dynamic)")
	default:
		ver, err := pep440.ParseVersion(version)
		if err != nil {
			ld.errs = append(ld.errs, &SchemaError{Path: versionPath, Msg: "invalid version", Err: err})
		} else {
			pkg.Version = ver
		}
	}
}

//nolint:gocyclo // one arm per metadata field
func (ld *loader) loadMetadata(pkg *packages.Package) {
	// description
	var description, descriptionPath string
	switch {
	case ld.useLegacy("description"):
		description, descriptionPath = ld.legacy.Description, "tool.masonry.description"
	case ld.project != nil:
		description, descriptionPath = ld.project.Description, "project.description"
	default:
		description, descriptionPath = ld.legacy.Description, "tool.masonry.description"
	}
	if strings.ContainsAny(description, "\n\r") {
		ld.errorf(descriptionPath, "description must not contain newlines")
	}
	pkg.Description = description

	// readme
	switch {
	case ld.useLegacy("readme"):
		ld.loadReadme(pkg, ld.legacy.Readme, "tool.masonry.readme")
	case ld.project != nil:
		ld.loadReadme(pkg, ld.project.Readme, "project.readme")
	default:
		ld.loadReadme(pkg, ld.legacy.Readme, "tool.masonry.readme")
	}

	// license
	switch {
	case ld.useLegacy("license"):
		pkg.License = packages.License{Expression: ld.legacy.License}
	case ld.project != nil:
		ld.loadLicense(pkg, ld.project.License, "project.license")
	default:
		pkg.License = packages.License{Expression: ld.legacy.License}
	}

	// authors and maintainers
	pkg.Authors = ld.loadPeople("authors")
	pkg.Maintainers = ld.loadPeople("maintainers")

	// keywords and classifiers
	switch {
	case ld.useLegacy("keywords"):
		pkg.Keywords = ld.legacy.Keywords
	case ld.project != nil:
		pkg.Keywords = ld.project.Keywords
	default:
		pkg.Keywords = ld.legacy.Keywords
	}
	switch {
	case ld.useLegacy("classifiers"):
		ld.loadClassifiers(pkg, ld.legacy.Classifiers, "tool.masonry.classifiers")
	case ld.project != nil:
		ld.loadClassifiers(pkg, ld.project.Classifiers, "project.classifiers")
	default:
		ld.loadClassifiers(pkg, ld.legacy.Classifiers, "tool.masonry.classifiers")
	}

	// urls
	if ld.project != nil && !ld.useLegacy("urls") {
		for label, url := range ld.project.URLs {
			pkg.URLs[label] = url
		}
	} else if ld.legacy != nil {
		if ld.legacy.Homepage != "" {
			pkg.URLs["Homepage"] = ld.legacy.Homepage
		}
		if ld.legacy.Repository != "" {
			pkg.URLs["Repository"] = ld.legacy.Repository
		}
		if ld.legacy.Documentation != "" {
			pkg.URLs["Documentation"] = ld.legacy.Documentation
		}
		for label, url := range ld.legacy.URLs {
			pkg.URLs[label] = url
		}
	}

	// requires-python
	pkg.RequiresPython = pep440.Any()
	if ld.project != nil && ld.project.RequiresPython != "" {
		set, err := pep440.ParseConstraint(ld.project.RequiresPython)
		if err != nil {
			ld.errs = append(ld.errs, &SchemaError{
				Path: "project.requires-python", Msg: "invalid constraint", Err: err,
			})
		} else {
			pkg.RequiresPython = set
		}
	}
}

//nolint:gochecknoglobals // Would be 'const'.
var readmeSuffixes = map[string]struct{}{
	".md":  {},
	".rst": {},
	".txt": {},
}

func (ld *loader) checkReadmePath(readmePath, fieldPath string) bool {
	suffix := strings.ToLower(path.Ext(readmePath))
	if _, ok := readmeSuffixes[suffix]; !ok {
		ld.errorf(fieldPath, "readme %q must have a .md, .rst, or .txt suffix", readmePath)
		return false
	}
	return true
}

func (ld *loader) loadReadme(pkg *packages.Package, value interface{}, fieldPath string) {
	switch value := value.(type) {
	case nil:
	case string:
		if ld.checkReadmePath(value, fieldPath) {
			pkg.ReadmePaths = append(pkg.ReadmePaths, value)
		}
	case []interface{}:
		for i, item := range value {
			itemPath := fmt.Sprintf("%s[%d]", fieldPath, i)
			str, ok := item.(string)
			if !ok {
				ld.errorf(itemPath, "expected a string, got %T", item)
				continue
			}
			if ld.checkReadmePath(str, itemPath) {
				pkg.ReadmePaths = append(pkg.ReadmePaths, str)
			}
		}
	case map[string]interface{}:
		if file, ok := value["file"].(string); ok {
			if ld.checkReadmePath(file, fieldPath+".file") {
				pkg.ReadmePaths = append(pkg.ReadmePaths, file)
			}
			return
		}
		if text, ok := value["text"].(string); ok {
			pkg.ReadmeText = text
			return
		}
		ld.errorf(fieldPath, "a readme table needs a \"file\" or \"text\" key")
	default:
		ld.errorf(fieldPath, "expected a string, array, or table, got %T", value)
	}
}

func (ld *loader) loadLicense(pkg *packages.Package, value interface{}, fieldPath string) {
	switch value := value.(type) {
	case nil:
	case string:
		pkg.License = packages.License{Expression: value}
	case map[string]interface{}:
		text, hasText := value["text"].(string)
		file, hasFile := value["file"].(string)
		switch {
		case hasText && !hasFile:
			pkg.License = packages.License{Text: text}
		case hasFile && !hasText:
			pkg.License = packages.License{File: file}
		default:
			ld.errorf(fieldPath, "a license table needs exactly one of \"text\" or \"file\"")
		}
	default:
		ld.errorf(fieldPath, "expected a string or table, got %T", value)
	}
}

var rePerson = regexp.MustCompile(`^(.*?)\s*<\s*([^<>\s]+@[^<>\s]+)\s*>$`)

func (ld *loader) parsePersonString(str, fieldPath string) (packages.Person, bool) {
	str = strings.TrimSpace(str)
	if match := rePerson.FindStringSubmatch(str); match != nil {
		return packages.Person{Name: match[1], Email: match[2]}, true
	}
	if strings.ContainsAny(str, "<>@") {
		ld.errorf(fieldPath, "expected \"Display Name <email@host>\", got %q", str)
		return packages.Person{}, false
	}
	return packages.Person{Name: str}, true
}

func (ld *loader) loadPeople(field string) []packages.Person {
	var people []packages.Person
	add := func(person packages.Person, ok bool) {
		if ok {
			people = append(people, person)
		}
	}

	if ld.useLegacy(field) || ld.project == nil {
		strs := ld.legacy.Authors
		if field == "maintainers" {
			strs = ld.legacy.Maintainers
		}
		for i, str := range strs {
			add(ld.parsePersonString(str, fmt.Sprintf("tool.masonry.%s[%d]", field, i)))
		}
		return people
	}

	items := ld.project.Authors
	if field == "maintainers" {
		items = ld.project.Maintainers
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("project.%s[%d]", field, i)
		switch item := item.(type) {
		case string:
			add(ld.parsePersonString(item, itemPath))
		case map[string]interface{}:
			name, _ := item["name"].(string)
			email, _ := item["email"].(string)
			if name == "" && email == "" {
				ld.errorf(itemPath, "a person table needs a \"name\" or \"email\" key")
				continue
			}
			people = append(people, packages.Person{Name: name, Email: email})
		default:
			ld.errorf(itemPath, "expected a string or table, got %T", item)
		}
	}
	return people
}

// classifierRoots is the closed top-level vocabulary of trove classifiers.
//
//nolint:gochecknoglobals // Would be 'const'.
var classifierRoots = map[string]struct{}{
	"Development Status":   {},
	"Environment":          {},
	"Framework":            {},
	"Intended Audience":    {},
	"License":              {},
	"Natural Language":     {},
	"Operating System":     {},
	"Programming Language": {},
	"Topic":                {},
	"Typing":               {},
	"Private":              {}, // "Private :: Do Not Upload" convention
}

func (ld *loader) loadClassifiers(pkg *packages.Package, classifiers []string, fieldPath string) {
	for i, classifier := range classifiers {
		root := strings.TrimSpace(strings.SplitN(classifier, "::", 2)[0])
		if _, known := classifierRoots[root]; !known {
			if ld.opts.AllowCustomClassifiers {
				ld.warnf("%s[%d]: unknown classifier %q", fieldPath, i, classifier)
			} else {
				ld.errorf(fmt.Sprintf("%s[%d]", fieldPath, i), "unknown classifier %q", classifier)
			}
		}
	}
	pkg.Classifiers = classifiers
}

func (ld *loader) loadDependencies(pkg *packages.Package) {
	if ld.project != nil && !ld.useLegacy("dependencies") {
		for i, depStr := range ld.project.Dependencies {
			depPath := fmt.Sprintf("project.dependencies[%d]", i)
			dep, err := packages.ParseDependency(depStr)
			if err != nil {
				ld.errs = append(ld.errs, &SchemaError{Path: depPath, Msg: "invalid dependency", Err: err})
				continue
			}
			pkg.AddDependency(packages.MainGroup, dep)
		}
	} else if ld.legacy != nil {
		ld.loadLegacyGroup(pkg, packages.MainGroup, ld.legacy.Dependencies, "tool.masonry.dependencies")
	}

	if ld.legacy == nil {
		return
	}
	if len(ld.legacy.DevDependencies) > 0 {
		ld.loadLegacyGroup(pkg, "dev", ld.legacy.DevDependencies, "tool.masonry.dev-dependencies")
	}
	groupNames := make([]string, 0, len(ld.legacy.Group))
	for groupName := range ld.legacy.Group {
		groupNames = append(groupNames, groupName)
	}
	sort.Strings(groupNames)
	for _, groupName := range groupNames {
		ld.loadLegacyGroup(pkg, groupName, ld.legacy.Group[groupName].Dependencies,
			"tool.masonry.group."+groupName+".dependencies")
	}
}

func (ld *loader) loadLegacyGroup(
	pkg *packages.Package,
	groupName string,
	deps map[string]interface{},
	basePath string,
) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		depPath := basePath + "." + name
		if groupName == packages.MainGroup && pep503.NormalizeName(name) == "python" {
			ld.loadLegacyPython(pkg, deps[name], depPath)
			continue
		}
		for _, dep := range ld.parseLegacyDependency(name, deps[name], depPath) {
			pkg.AddDependency(groupName, dep)
		}
	}
}

// loadLegacyPython handles the conventional "python" pseudo-dependency in the
// legacy runtime group, which declares the interpreter requirement.
func (ld *loader) loadLegacyPython(pkg *packages.Package, value interface{}, depPath string) {
	str, ok := value.(string)
	if !ok {
		ld.errorf(depPath, "the python requirement must be a constraint string")
		return
	}
	set, err := pep440.ParseConstraint(str)
	if err != nil {
		ld.errs = append(ld.errs, &SchemaError{Path: depPath, Msg: "invalid constraint", Err: err})
		return
	}
	pkg.RequiresPython = set
}

func (ld *loader) parseLegacyDependency(
	name string,
	value interface{},
	depPath string,
) []*packages.Dependency {
	switch value := value.(type) {
	case string:
		dep, err := packages.FromInline(ld.ctx, name, packages.InlineSpec{Version: value})
		if err != nil {
			ld.errs = append(ld.errs, &SchemaError{Path: depPath, Msg: "invalid dependency", Err: err})
			return nil
		}
		return []*packages.Dependency{dep}
	case map[string]interface{}:
		dep, err := ld.inlineFromTable(name, value, depPath)
		if err != nil {
			ld.errs = append(ld.errs, &SchemaError{Path: depPath, Msg: "invalid dependency", Err: err})
			return nil
		}
		return []*packages.Dependency{dep}
	case []interface{}:
		// multiple-constraints form: an array of inline tables, usually
		// differing in their python or markers gates
		var out []*packages.Dependency
		for i, item := range value {
			itemPath := fmt.Sprintf("%s[%d]", depPath, i)
			table, ok := item.(map[string]interface{})
			if !ok {
				ld.errorf(itemPath, "expected a table, got %T", item)
				continue
			}
			dep, err := ld.inlineFromTable(name, table, itemPath)
			if err != nil {
				ld.errs = append(ld.errs, &SchemaError{Path: itemPath, Msg: "invalid dependency", Err: err})
				continue
			}
			out = append(out, dep)
		}
		return out
	default:
		ld.errorf(depPath, "expected a constraint string, table, or array of tables, got %T", value)
		return nil
	}
}

func (ld *loader) inlineFromTable(
	name string,
	table map[string]interface{},
	depPath string,
) (*packages.Dependency, error) {
	data, err := toml.Marshal(table)
	if err != nil {
		return nil, err
	}
	var spec packages.InlineSpec
	if err := toml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	for key := range table {
		switch key {
		case "version", "path", "url", "git", "hg", "svn", "bzr",
			"branch", "tag", "rev", "ref", "subdirectory",
			"extras", "markers", "python", "optional", "develop",
			"allow-prereleases", "allow_prereleases", "source":
		default:
			ld.warnf("%s: ignoring unknown key %q", depPath, key)
		}
	}
	return packages.FromInline(ld.ctx, name, spec)
}

func (ld *loader) loadExtras(pkg *packages.Package) {
	mainByName := make(map[string]*packages.Dependency)
	for _, dep := range pkg.MainDependencies() {
		mainByName[dep.CanonicalName()] = dep
	}

	if ld.project != nil && !ld.useLegacy("optional-dependencies") {
		extraNames := make([]string, 0, len(ld.project.OptionalDependencies))
		for extra := range ld.project.OptionalDependencies {
			extraNames = append(extraNames, extra)
		}
		sort.Strings(extraNames)
		for _, extra := range extraNames {
			normalized := pep503.NormalizeExtra(extra)
			for i, depStr := range ld.project.OptionalDependencies[extra] {
				depPath := fmt.Sprintf("project.optional-dependencies.%s[%d]", extra, i)
				dep, err := packages.ParseDependency(depStr)
				if err != nil {
					ld.errs = append(ld.errs, &SchemaError{Path: depPath, Msg: "invalid dependency", Err: err})
					continue
				}
				dep.Optional = true
				if existing, ok := mainByName[dep.CanonicalName()]; ok && existing.Equal(dep) {
					dep = existing
				} else {
					pkg.AddDependency(packages.MainGroup, dep)
					mainByName[dep.CanonicalName()] = dep
				}
				pkg.Extras[normalized] = append(pkg.Extras[normalized], dep.CanonicalName())
			}
		}
		return
	}

	if ld.legacy == nil {
		return
	}
	extraNames := make([]string, 0, len(ld.legacy.Extras))
	for extra := range ld.legacy.Extras {
		extraNames = append(extraNames, extra)
	}
	sort.Strings(extraNames)
	for _, extra := range extraNames {
		normalized := pep503.NormalizeExtra(extra)
		for _, depName := range ld.legacy.Extras[extra] {
			canonical := pep503.NormalizeName(depName)
			dep, known := mainByName[canonical]
			if !known {
				ld.errs = append(ld.errs, &packages.InvalidReferenceError{
					Path: "tool.masonry.extras." + extra,
					Name: depName,
				})
				continue
			}
			if !dep.Optional {
				ld.warnf("tool.masonry.extras.%s: dependency %q is not marked optional", extra, depName)
			}
			pkg.Extras[normalized] = append(pkg.Extras[normalized], canonical)
		}
	}
}

var reScriptTarget = regexp.MustCompile(
	`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*:[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func (ld *loader) loadScripts(pkg *packages.Package) {
	var scripts map[string]interface{}
	var basePath string
	switch {
	case ld.useLegacy("scripts"):
		scripts, basePath = ld.legacy.Scripts, "tool.masonry.scripts"
	case ld.project != nil:
		scripts, basePath = ld.project.Scripts, "project.scripts"
	default:
		scripts, basePath = ld.legacy.Scripts, "tool.masonry.scripts"
	}

	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		scriptPath := basePath + "." + name
		switch value := scripts[name].(type) {
		case string:
			if !reScriptTarget.MatchString(value) {
				ld.errorf(scriptPath, "script target %q does not match \"module(.sub)*:callable\"", value)
				continue
			}
			pkg.Scripts[name] = packages.ScriptTarget{Reference: value, Type: packages.ScriptCallable}
		case map[string]interface{}:
			reference, _ := value["reference"].(string)
			if reference == "" {
				if callable, ok := value["callable"].(string); ok {
					if !reScriptTarget.MatchString(callable) {
						ld.errorf(scriptPath, "script target %q does not match \"module(.sub)*:callable\"",
							callable)
						continue
					}
					pkg.Scripts[name] = packages.ScriptTarget{
						Reference: callable,
						Type:      packages.ScriptCallable,
					}
					continue
				}
				ld.errorf(scriptPath, "a script table needs a \"reference\" or \"callable\" key")
				continue
			}
			if scriptType, _ := value["type"].(string); scriptType != "file" {
				ld.errorf(scriptPath, "script reference %q requires type = \"file\"", reference)
				continue
			}
			pkg.Scripts[name] = packages.ScriptTarget{Reference: reference, Type: packages.ScriptFile}
		default:
			ld.errorf(scriptPath, "expected a string or table, got %T", value)
		}
	}

	if ld.project != nil {
		for name, target := range ld.project.GUIScripts {
			if !reScriptTarget.MatchString(target) {
				ld.errorf("project.gui-scripts."+name,
					"script target %q does not match \"module(.sub)*:callable\"", target)
				continue
			}
			if pkg.EntryPoints["gui_scripts"] == nil {
				pkg.EntryPoints["gui_scripts"] = make(map[string]string)
			}
			pkg.EntryPoints["gui_scripts"][name] = target
		}
	}
}

func (ld *loader) loadEntryPoints(pkg *packages.Package) {
	load := func(groups map[string]map[string]string, basePath string) {
		for groupName, entries := range groups {
			switch groupName {
			case "console_scripts", "gui_scripts":
				ld.warnf("%s.%s: declare these under scripts instead", basePath, groupName)
			}
			for name, target := range entries {
				if target == "" {
					ld.errorf(fmt.Sprintf("%s.%s.%s", basePath, groupName, name),
						"an entry-point target must be non-empty")
					continue
				}
				if pkg.EntryPoints[groupName] == nil {
					pkg.EntryPoints[groupName] = make(map[string]string)
				}
				pkg.EntryPoints[groupName][name] = target
			}
		}
	}
	if ld.project != nil && !ld.useLegacy("entry-points") {
		load(ld.project.EntryPoints, "project.entry-points")
	} else if ld.legacy != nil {
		load(ld.legacy.Plugins, "tool.masonry.plugins")
	}
}

func (ld *loader) loadFileSelection(pkg *packages.Package) {
	if ld.legacy == nil {
		return
	}
	for i, include := range ld.legacy.Packages {
		includePath := fmt.Sprintf("tool.masonry.packages[%d]", i)
		if include.Include == "" {
			ld.errorf(includePath, "an \"include\" key is required")
			continue
		}
		format, ok := ld.parseFormat(include.Format, includePath+".format")
		if !ok {
			continue
		}
		pkg.Packages = append(pkg.Packages, packages.PackageInclude{
			Include: include.Include,
			From:    include.From,
			Format:  format,
		})
	}
	for i, item := range ld.legacy.Include {
		includePath := fmt.Sprintf("tool.masonry.include[%d]", i)
		switch item := item.(type) {
		case string:
			pkg.Include = append(pkg.Include, packages.FileInclude{Path: item, Format: packages.FormatBoth})
		case map[string]interface{}:
			pathStr, _ := item["path"].(string)
			if pathStr == "" {
				ld.errorf(includePath, "a \"path\" key is required")
				continue
			}
			format, ok := ld.parseFormat(item["format"], includePath+".format")
			if !ok {
				continue
			}
			pkg.Include = append(pkg.Include, packages.FileInclude{Path: pathStr, Format: format})
		default:
			ld.errorf(includePath, "expected a string or table, got %T", item)
		}
	}
	pkg.Exclude = ld.legacy.Exclude
}

func (ld *loader) parseFormat(value interface{}, fieldPath string) (packages.IncludeFormat, bool) {
	switch value := value.(type) {
	case nil:
		return packages.FormatBoth, true
	case string:
		switch value {
		case "sdist":
			return packages.FormatSdist, true
		case "wheel":
			return packages.FormatWheel, true
		}
		ld.errorf(fieldPath, "format must be \"sdist\" or \"wheel\", got %q", value)
		return 0, false
	case []interface{}:
		var sdist, wheel bool
		for _, item := range value {
			switch item {
			case "sdist":
				sdist = true
			case "wheel":
				wheel = true
			default:
				ld.errorf(fieldPath, "format must be \"sdist\" or \"wheel\", got %v", item)
				return 0, false
			}
		}
		switch {
		case sdist && wheel:
			return packages.FormatBoth, true
		case sdist:
			return packages.FormatSdist, true
		case wheel:
			return packages.FormatWheel, true
		default:
			return packages.FormatBoth, true
		}
	default:
		ld.errorf(fieldPath, "expected a string or array, got %T", value)
		return 0, false
	}
}

func (ld *loader) loadBuild(pkg *packages.Package) {
	if ld.legacy == nil || ld.legacy.Build == nil {
		return
	}
	build := &packages.BuildConfig{
		Script:            ld.legacy.Build.Script,
		GenerateSetupFile: ld.legacy.Build.GenerateSetupFile,
	}
	if ld.build != nil {
		build.Requires = ld.build.Requires
	}
	pkg.Build = build
}

// EnvironmentMarker returns the marker a dependency effectively carries for
// the named extra, for wheel metadata emission: the dependency's own marker
// intersected with the `extra == "<name>"` gate.
func EnvironmentMarker(dep *packages.Dependency, extra string) pep508.Marker {
	gate := pep508.Atom{Attr: "extra", Op: "==", Value: extra}
	if dep.Marker == nil {
		return gate
	}
	return pep508.Intersect(dep.Marker, gate)
}
