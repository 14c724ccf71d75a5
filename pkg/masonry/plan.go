// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package masonry plans and emits build artifacts: the deterministic file
// selection (BuildPlan), the Core Metadata rendering, and the sdist / wheel /
// editable-wheel writers.
package masonry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/vcs"
)

// A PlanEntry pairs a file on disk with the POSIX path it takes inside an
// archive.
type PlanEntry struct {
	Source  string // path on disk, relative to the source root
	Archive string // POSIX path inside the archive
}

// A BuildPlan is the deterministic file selection for one source tree:
// SdistFiles, WheelFiles, and LicenseFiles are sorted by archive path and free
// of duplicates; ScriptFiles follow script-name order.
type BuildPlan struct {
	// SdistFiles land under the sdist's "<name>-<version>/" top directory.
	SdistFiles []PlanEntry
	// WheelFiles land at the wheel root.
	WheelFiles []PlanEntry
	// LicenseFiles land at the sdist root and, in the wheel, under
	// "<name>-<version>.dist-info/licenses/".
	LicenseFiles []PlanEntry
	// ScriptFiles are file-reference script targets; in the wheel they
	// land under "<name>-<version>.data/scripts/".
	ScriptFiles []PlanEntry
}

// NewPlan walks the source tree and selects the files for each artifact:
//
//  1. Declared packages and includes contribute their transitive contents,
//     filtered by the VCS ignore list when the source is a git working tree,
//     minus declared excludes.
//  2. Per-entry format selectors gate sdist/wheel membership.
//  3. A file named in "include" is always in, whatever its ignore status.
//  4. The manifest, README(s), and license files are always in the sdist.
//  5. Directory dependencies are not walked; only this package's own
//     declarations select files.
func NewPlan(ctx context.Context, pkg *packages.Package, srcDir string) (*BuildPlan, error) {
	plan := &planner{
		ctx:     ctx,
		pkg:     pkg,
		srcDir:  srcDir,
		ignored: vcs.IgnoredFiles(ctx, srcDir),
		sdist:   make(map[string]PlanEntry),
		wheel:   make(map[string]PlanEntry),
	}
	if err := plan.run(); err != nil {
		return nil, fmt.Errorf("masonry.NewPlan: %w", err)
	}
	return plan.finish(), nil
}

type planner struct {
	ctx    context.Context
	pkg    *packages.Package
	srcDir string

	ignored  map[string]struct{}
	sdist    map[string]PlanEntry // archive path -> entry
	wheel    map[string]PlanEntry
	licenses []PlanEntry
	scripts  []PlanEntry
}

func (plan *planner) run() error {
	includes := plan.pkg.Packages
	if len(includes) == 0 {
		detected, err := plan.detectPackages()
		if err != nil {
			return err
		}
		includes = detected
	}
	for _, include := range includes {
		if err := plan.addPackage(include); err != nil {
			return err
		}
	}
	for _, include := range plan.pkg.Include {
		if err := plan.addInclude(include); err != nil {
			return err
		}
	}
	if err := plan.addStandardFiles(); err != nil {
		return err
	}
	return plan.collectLicenses()
}

// detectPackages finds the implicit package when the manifest declares none:
// a directory (or module file) named after the project, flat or under src/.
func (plan *planner) detectPackages() ([]packages.PackageInclude, error) {
	module := plan.pkg.FilenameName()
	for _, candidate := range []packages.PackageInclude{
		{Include: module},
		{Include: module, From: "src"},
		{Include: module + ".py"},
		{Include: module + ".py", From: "src"},
	} {
		if _, err := os.Stat(filepath.Join(plan.srcDir, candidate.From, candidate.Include)); err == nil {
			return []packages.PackageInclude{candidate}, nil
		}
	}
	dlog.Warnf(plan.ctx, "no package or module named %q found; packaging metadata only", module)
	return nil, nil
}

func (plan *planner) addPackage(include packages.PackageInclude) error {
	root := filepath.Join(plan.srcDir, include.From, include.Include)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("package %q: %w", include.Include, err)
	}
	if !info.IsDir() {
		plan.addFile(path.Join(include.From, include.Include), include.From, include.Format, false)
		return nil
	}
	return filepath.WalkDir(root, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == "__pycache__" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(entry.Name(), ".pyc") {
			return nil
		}
		rel, err := filepath.Rel(plan.srcDir, name)
		if err != nil {
			return err
		}
		plan.addFile(filepath.ToSlash(rel), include.From, include.Format, false)
		return nil
	})
}

func (plan *planner) addInclude(include packages.FileInclude) error {
	pattern := filepath.Join(plan.srcDir, filepath.FromSlash(include.Path))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("include %q: %w", include.Path, err)
	}
	if matches == nil {
		dlog.Warnf(plan.ctx, "include %q matched no files", include.Path)
	}
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return err
		}
		if info.IsDir() {
			err := filepath.WalkDir(match, func(name string, entry fs.DirEntry, err error) error {
				if err != nil || entry.IsDir() {
					return err
				}
				rel, err := filepath.Rel(plan.srcDir, name)
				if err != nil {
					return err
				}
				plan.addFile(filepath.ToSlash(rel), "", include.Format, true)
				return nil
			})
			if err != nil {
				return err
			}
			continue
		}
		rel, err := filepath.Rel(plan.srcDir, match)
		if err != nil {
			return err
		}
		plan.addFile(filepath.ToSlash(rel), "", include.Format, true)
	}
	return nil
}

// addFile records one root-relative POSIX path.  Explicit includes override
// the VCS ignore list; everything honors the manifest's excludes.
func (plan *planner) addFile(rel, from string, format packages.IncludeFormat, explicit bool) {
	if !explicit {
		if _, isIgnored := plan.ignored[rel]; isIgnored {
			return
		}
	}
	if plan.excluded(rel) {
		return
	}
	entry := PlanEntry{Source: rel, Archive: rel}
	if format == packages.FormatBoth || format == packages.FormatSdist {
		plan.sdist[entry.Archive] = entry
	}
	if format == packages.FormatBoth || format == packages.FormatWheel {
		wheelEntry := entry
		if from != "" {
			wheelEntry.Archive = strings.TrimPrefix(rel, path.Clean(from)+"/")
		}
		plan.wheel[wheelEntry.Archive] = wheelEntry
	}
}

func (plan *planner) excluded(rel string) bool {
	for _, pattern := range plan.pkg.Exclude {
		pattern = strings.TrimSuffix(pattern, "/")
		if matched, _ := path.Match(pattern, rel); matched {
			return true
		}
		// a directory pattern excludes everything under it
		if strings.HasPrefix(rel, pattern+"/") {
			return true
		}
	}
	return false
}

// addStandardFiles forces the manifest and README(s) into the sdist.
func (plan *planner) addStandardFiles() error {
	plan.sdist["pyproject.toml"] = PlanEntry{Source: "pyproject.toml", Archive: "pyproject.toml"}
	for _, readme := range plan.pkg.ReadmePaths {
		rel := filepath.ToSlash(filepath.Clean(readme))
		plan.sdist[rel] = PlanEntry{Source: rel, Archive: rel}
	}
	if plan.pkg.License.File != "" {
		rel := filepath.ToSlash(filepath.Clean(plan.pkg.License.File))
		plan.sdist[rel] = PlanEntry{Source: rel, Archive: rel}
	}
	if plan.pkg.Build != nil && plan.pkg.Build.Script != "" {
		rel := filepath.ToSlash(filepath.Clean(plan.pkg.Build.Script))
		plan.sdist[rel] = PlanEntry{Source: rel, Archive: rel}
	}

	scriptNames := make([]string, 0, len(plan.pkg.Scripts))
	for name := range plan.pkg.Scripts {
		scriptNames = append(scriptNames, name)
	}
	sort.Strings(scriptNames)
	for _, name := range scriptNames {
		target := plan.pkg.Scripts[name]
		if target.Type != packages.ScriptFile {
			continue
		}
		rel := filepath.ToSlash(filepath.Clean(target.Reference))
		plan.sdist[rel] = PlanEntry{Source: rel, Archive: rel}
		plan.scripts = append(plan.scripts, PlanEntry{Source: rel, Archive: path.Base(rel)})
	}
	return nil
}

// licenseGlobs name the conventional license-ish files shipped in both
// artifacts.
//
//nolint:gochecknoglobals // Would be 'const'.
var licenseGlobs = []string{
	"LICENSE", "LICENSE.*", "LICENSES/*",
	"COPYING", "COPYING.*",
	"NOTICE", "NOTICE.*",
	"AUTHORS", "AUTHORS.*",
}

func (plan *planner) collectLicenses() error {
	seen := make(map[string]struct{})
	for _, glob := range licenseGlobs {
		matches, err := filepath.Glob(filepath.Join(plan.srcDir, glob))
		if err != nil {
			return err
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			rel, err := filepath.Rel(plan.srcDir, match)
			if err != nil {
				return err
			}
			relSlash := filepath.ToSlash(rel)
			if _, dup := seen[relSlash]; dup {
				continue
			}
			seen[relSlash] = struct{}{}
			plan.licenses = append(plan.licenses, PlanEntry{Source: relSlash, Archive: relSlash})
			plan.sdist[relSlash] = PlanEntry{Source: relSlash, Archive: relSlash}
		}
	}
	sort.Slice(plan.licenses, func(i, j int) bool {
		return plan.licenses[i].Archive < plan.licenses[j].Archive
	})
	return nil
}

func (plan *planner) finish() *BuildPlan {
	return &BuildPlan{
		SdistFiles:   sortEntries(plan.sdist),
		WheelFiles:   sortEntries(plan.wheel),
		LicenseFiles: plan.licenses,
		ScriptFiles:  plan.scripts,
	}
}

func sortEntries(entries map[string]PlanEntry) []PlanEntry {
	out := make([]PlanEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Archive < out[j].Archive
	})
	return out
}
