// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package masonry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/reproducible"
)

// BuildSdist emits "<name>-<version>.tar.gz" into outDir and returns the
// filename.  The archive's top directory is "<name>-<version>/"; it holds the
// plan's sdist files plus a generated PKG-INFO in the wheel METADATA format.
// Entries are sorted, owned by uid 0 / gid 0 with empty owner names, mode
// 0o644 for files and 0o755 for directories, stamped with the reproducible
// timestamp.
func BuildSdist(ctx context.Context, pkg *packages.Package, srcDir, outDir string) (string, error) {
	plan, err := NewPlan(ctx, pkg, srcDir)
	if err != nil {
		return "", err
	}
	metadata, err := Metadata(pkg, srcDir)
	if err != nil {
		return "", err
	}

	stem := fmt.Sprintf("%s-%s", pkg.FilenameName(), pkg.FilenameVersion())
	filename := stem + ".tar.gz"

	type tarEntry struct {
		name    string // archive path, without the top directory
		isDir   bool
		content []byte // nil: read from source
		source  string
	}
	entries := []tarEntry{{name: "PKG-INFO", content: metadata}}
	dirs := make(map[string]struct{})
	for _, planned := range plan.SdistFiles {
		entries = append(entries, tarEntry{name: planned.Archive, source: planned.Source})
		for dir := path.Dir(planned.Archive); dir != "."; dir = path.Dir(dir) {
			dirs[dir] = struct{}{}
		}
	}
	for dir := range dirs {
		entries = append(entries, tarEntry{name: dir, isDir: true})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})

	when := reproducible.Now()
	err = writeAtomically(filepath.Join(outDir, filename), func(out *os.File) error {
		gzWriter := gzip.NewWriter(out)
		tarWriter := tar.NewWriter(gzWriter)

		for _, entry := range entries {
			header := &tar.Header{
				Name:    path.Join(stem, entry.name),
				Mode:    0o644,
				Uid:     0,
				Gid:     0,
				Uname:   "",
				Gname:   "",
				ModTime: when,
				Format:  tar.FormatGNU,
			}
			if entry.isDir {
				header.Typeflag = tar.TypeDir
				header.Name += "/"
				header.Mode = 0o755
				if err := tarWriter.WriteHeader(header); err != nil {
					return err
				}
				continue
			}
			content := entry.content
			if content == nil {
				data, err := os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(entry.source)))
				if err != nil {
					return err
				}
				content = data
			}
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(content))
			if err := tarWriter.WriteHeader(header); err != nil {
				return err
			}
			if _, err := tarWriter.Write(content); err != nil {
				return err
			}
		}

		if err := tarWriter.Close(); err != nil {
			return err
		}
		return gzWriter.Close()
	})
	if err != nil {
		return "", fmt.Errorf("masonry.BuildSdist: %w", err)
	}
	return filename, nil
}
