// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package masonry

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/python/pep425"
)

// BuildEditable emits a wheel whose payload is a single ".pth" stub: when
// the interpreter imports it, the source tree's package directories become
// visible on sys.path.  Nothing is copied out of the tree.
func BuildEditable(ctx context.Context, pkg *packages.Package, srcDir, outDir string) (string, error) {
	// planning validates that the declared packages exist, even though the
	// editable wheel copies none of them
	if _, err := NewPlan(ctx, pkg, srcDir); err != nil {
		return "", err
	}

	metadata, err := Metadata(pkg, srcDir)
	if err != nil {
		return "", err
	}

	roots, err := sourceRoots(pkg, srcDir)
	if err != nil {
		return "", err
	}

	stem := fmt.Sprintf("%s-%s", pkg.FilenameName(), pkg.FilenameVersion())
	tag := pep425.Tag{Python: "py3", ABI: "none", Platform: "any"}
	filename := fmt.Sprintf("%s-%s.whl", stem, tag)
	distInfoDir := stem + ".dist-info"

	err = writeAtomically(filepath.Join(outDir, filename), func(out *os.File) error {
		zipWriter := zip.NewWriter(out)
		builder := newZipBuilder(zipWriter)

		pth := []byte(strings.Join(roots, "\n") + "\n")
		if err := builder.add(pkg.FilenameName()+".pth", pth, false); err != nil {
			return err
		}
		if err := builder.add(path.Join(distInfoDir, "METADATA"), metadata, false); err != nil {
			return err
		}
		if err := builder.add(path.Join(distInfoDir, "WHEEL"), WheelFileContent(pkg, tag), false); err != nil {
			return err
		}
		if entryPoints := EntryPointsContent(pkg); entryPoints != nil {
			name := path.Join(distInfoDir, "entry_points.txt")
			if err := builder.add(name, entryPoints, false); err != nil {
				return err
			}
		}
		if err := builder.writeRecord(distInfoDir); err != nil {
			return err
		}
		return zipWriter.Close()
	})
	if err != nil {
		return "", fmt.Errorf("masonry.BuildEditable: %w", err)
	}
	return filename, nil
}

// sourceRoots returns the absolute directories the .pth stub must name: one
// per distinct package prefix ("src" for src layouts, the tree root
// otherwise), sorted and deduplicated.
func sourceRoots(pkg *packages.Package, srcDir string) ([]string, error) {
	abs, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, err
	}
	rootSet := make(map[string]struct{})
	includes := pkg.Packages
	if len(includes) == 0 {
		if _, err := os.Stat(filepath.Join(abs, "src")); err == nil {
			rootSet[filepath.Join(abs, "src")] = struct{}{}
		} else {
			rootSet[abs] = struct{}{}
		}
	}
	for _, include := range includes {
		rootSet[filepath.Join(abs, include.From)] = struct{}{}
	}
	roots := make([]string, 0, len(rootSet))
	for root := range rootSet {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots, nil
}
