// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package masonry

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/masonry/pkg/manifest"
	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/python"
)

// MetadataVersion is the Core Metadata revision the backend emits; the same
// bytes serve as the wheel's METADATA and the sdist's PKG-INFO.
const MetadataVersion = "2.3"

// Metadata renders the package's Core Metadata.  srcDir is needed to read
// readme and license file references; the read happens at emission time.
//
//nolint:gocyclo // one arm per metadata field, in emission order
func Metadata(pkg *packages.Package, srcDir string) ([]byte, error) {
	if pkg.Version == nil {
		return nil, fmt.Errorf("masonry.Metadata: package version is not set")
	}

	var ret strings.Builder
	emit := func(field, value string) {
		fmt.Fprintf(&ret, "%s: %s\n", field, value)
	}

	emit("Metadata-Version", MetadataVersion)
	emit("Name", pkg.CanonicalName())
	emit("Version", pkg.Version.String())
	if pkg.Description != "" {
		emit("Summary", pkg.Description)
	}
	if homepage, ok := pkg.URLs["Homepage"]; ok {
		emit("Home-page", homepage)
	}

	license, err := licenseValue(pkg, srcDir)
	if err != nil {
		return nil, err
	}
	if license != "" {
		emit("License", foldHeaderValue(license))
	}

	if len(pkg.Keywords) > 0 {
		emit("Keywords", strings.Join(pkg.Keywords, ","))
	}
	if len(pkg.Authors) > 0 {
		emit("Author", pkg.Authors[0].Name)
		if pkg.Authors[0].Email != "" {
			emit("Author-email", pkg.Authors[0].String())
		}
	}
	if len(pkg.Maintainers) > 0 {
		emit("Maintainer", pkg.Maintainers[0].Name)
		if pkg.Maintainers[0].Email != "" {
			emit("Maintainer-email", pkg.Maintainers[0].String())
		}
	}
	if !pkg.RequiresPython.IsAny() {
		emit("Requires-Python", pkg.RequiresPython.String())
	}
	for _, classifier := range pkg.Classifiers {
		emit("Classifier", classifier)
	}
	for _, extra := range pkg.ExtraNames() {
		emit("Provides-Extra", extra)
	}
	for _, line := range requiresDist(pkg) {
		emit("Requires-Dist", line)
	}
	for _, label := range pkg.URLNames() {
		if label == "Homepage" {
			continue
		}
		emit("Project-URL", fmt.Sprintf("%s, %s", label, pkg.URLs[label]))
	}

	description, contentType, err := readmeBody(pkg, srcDir)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		emit("Description-Content-Type", contentType)
	}
	if description != "" {
		ret.WriteString("\n")
		ret.WriteString(description)
		if !strings.HasSuffix(description, "\n") {
			ret.WriteString("\n")
		}
	}

	return []byte(ret.String()), nil
}

// requiresDist renders one Requires-Dist line per runtime dependency: core
// dependencies with their own markers, extras dependencies once per extra
// with the dependency's marker intersected with the extra gate.  Lines are
// sorted.
func requiresDist(pkg *packages.Package) []string {
	var lines []string
	extrasFor := make(map[string][]string) // canonical dep name -> extras
	for extra, depNames := range pkg.Extras {
		for _, depName := range depNames {
			extrasFor[depName] = append(extrasFor[depName], extra)
		}
	}
	for _, dep := range pkg.MainDependencies() {
		extras := extrasFor[dep.CanonicalName()]
		sort.Strings(extras)
		if dep.Optional && len(extras) == 0 {
			// optional but reachable through no extra: unreachable, skip
			continue
		}
		if !dep.Optional {
			plain := *dep
			plain.Name = dep.CanonicalName()
			lines = append(lines, plain.String())
			continue
		}
		for _, extra := range extras {
			gated := *dep
			gated.Name = dep.CanonicalName()
			gated.Marker = manifest.EnvironmentMarker(dep, extra)
			lines = append(lines, gated.String())
		}
	}
	sort.Strings(lines)
	return lines
}

func licenseValue(pkg *packages.Package, srcDir string) (string, error) {
	switch {
	case pkg.License.Expression != "":
		return pkg.License.Expression, nil
	case pkg.License.Text != "":
		return pkg.License.Text, nil
	case pkg.License.File != "":
		data, err := os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(pkg.License.File)))
		if err != nil {
			return "", fmt.Errorf("masonry.Metadata: license file: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		return "", nil
	}
}

// foldHeaderValue makes a multi-line value legal in an RFC 822 style header
// by indenting continuation lines.
func foldHeaderValue(value string) string {
	return strings.ReplaceAll(value, "\n", "\n        ")
}

//nolint:gochecknoglobals // Would be 'const'.
var contentTypes = map[string]string{
	".md":  "text/markdown",
	".rst": "text/x-rst",
	".txt": "text/plain",
}

// readmeBody concatenates the readme references in listed order with a blank
// line between them; the content type follows the first readme's suffix.
func readmeBody(pkg *packages.Package, srcDir string) (body, contentType string, err error) {
	if pkg.ReadmeText != "" {
		return pkg.ReadmeText, "text/plain", nil
	}
	if len(pkg.ReadmePaths) == 0 {
		return "", "", nil
	}
	parts := make([]string, 0, len(pkg.ReadmePaths))
	for _, readme := range pkg.ReadmePaths {
		data, err := os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(readme)))
		if err != nil {
			return "", "", fmt.Errorf("masonry.Metadata: readme: %w", err)
		}
		parts = append(parts, strings.TrimRight(string(data), "\n"))
	}
	contentType = contentTypes[strings.ToLower(path.Ext(pkg.ReadmePaths[0]))]
	return strings.Join(parts, "\n\n"), contentType, nil
}

// EntryPointsContent renders entry_points.txt: scripts become the
// console_scripts group, gui-scripts and plugin groups pass through.  An
// empty result means the file is omitted.
func EntryPointsContent(pkg *packages.Package) []byte {
	sections := make(python.Config)
	for groupName, entries := range pkg.EntryPoints {
		for name, target := range entries {
			if sections[groupName] == nil {
				sections[groupName] = make(python.ConfigSection)
			}
			sections[groupName][name] = strings.ReplaceAll(target, " ", "")
		}
	}
	for name, target := range pkg.Scripts {
		if target.Type != packages.ScriptCallable {
			continue
		}
		if sections["console_scripts"] == nil {
			sections["console_scripts"] = make(python.ConfigSection)
		}
		sections["console_scripts"][name] = target.Reference
	}
	if len(sections) == 0 {
		return nil
	}
	return python.WriteINI(sections)
}
