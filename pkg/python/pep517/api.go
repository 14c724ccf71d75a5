// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep517 implements PEP 517 -- A build-system independent format for
// source trees: the hook surface a package installer invokes to obtain
// metadata and build artifacts.  Inputs are filesystem paths and a
// configuration mapping; outputs are filenames relative to the supplied
// directory.  Every hook builds a fresh object graph from the manifest; no
// state persists between invocations.
//
// https://peps.python.org/pep-0517/
package pep517

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/datawire/masonry/pkg/manifest"
	"github.com/datawire/masonry/pkg/masonry"
	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/python"
)

// A Config is the frontend's config_settings mapping, passed through to
// every hook.
type Config map[string]interface{}

func (config Config) manifestOptions() manifest.Options {
	allow, _ := config["allow-custom-classifiers"].(bool)
	return manifest.Options{AllowCustomClassifiers: allow}
}

func load(ctx context.Context, srcDir string, config Config) (*packages.Package, error) {
	return manifest.Load(ctx, srcDir, config.manifestOptions())
}

// GetRequiresForBuildSdist always returns an empty list: the backend is
// self-contained for source distributions.
func GetRequiresForBuildSdist(_ context.Context, _ string, _ Config) ([]string, error) {
	return []string{}, nil
}

// GetRequiresForBuildWheel returns the extra requirements for building a
// wheel from srcDir: empty for pure wheels, the manifest's declared build
// requires when a build script is present.
func GetRequiresForBuildWheel(ctx context.Context, srcDir string, config Config) ([]string, error) {
	pkg, err := load(ctx, srcDir, config)
	if err != nil {
		return nil, err
	}
	if pkg.Build == nil || pkg.Build.Script == "" {
		return []string{}, nil
	}
	return pkg.Build.Requires, nil
}

// PrepareMetadataForBuildWheel emits only the dist-info directory (METADATA,
// WHEEL, entry_points.txt, and a RECORD skeleton) into metadataDir and
// returns its name.
func PrepareMetadataForBuildWheel(
	ctx context.Context,
	srcDir, metadataDir string,
	config Config,
) (string, error) {
	pkg, err := load(ctx, srcDir, config)
	if err != nil {
		return "", err
	}
	metadata, err := masonry.Metadata(pkg, srcDir)
	if err != nil {
		return "", err
	}

	distInfoName := fmt.Sprintf("%s-%s.dist-info", pkg.FilenameName(), pkg.FilenameVersion())
	distInfoDir := filepath.Join(metadataDir, distInfoName)
	if err := os.MkdirAll(distInfoDir, 0o755); err != nil {
		return "", err
	}

	files := map[string][]byte{
		"METADATA": metadata,
		"WHEEL":    masonry.WheelFileContent(pkg, masonry.WheelTag(pkg)),
	}
	if entryPoints := masonry.EntryPointsContent(pkg); entryPoints != nil {
		files["entry_points.txt"] = entryPoints
	}

	rows := []string{distInfoName + "/RECORD,,"}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(distInfoDir, name), content, 0o644); err != nil {
			return "", err
		}
		digest, err := python.RecordDigest("sha256", content)
		if err != nil {
			return "", err
		}
		rows = append(rows, distInfoName+"/"+name+","+digest+","+strconv.Itoa(len(content)))
	}
	sort.Strings(rows)
	record := strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(distInfoDir, "RECORD"), []byte(record), 0o644); err != nil {
		return "", err
	}

	return distInfoName, nil
}

// BuildSdist emits the sdist into sdistDir and returns its filename.
func BuildSdist(ctx context.Context, srcDir, sdistDir string, config Config) (string, error) {
	pkg, err := load(ctx, srcDir, config)
	if err != nil {
		return "", err
	}
	return masonry.BuildSdist(ctx, pkg, srcDir, sdistDir)
}

// BuildWheel emits the wheel into wheelDir and returns its filename.  When
// metadataDir is non-empty it must hold what PrepareMetadataForBuildWheel
// produced for this source tree; its METADATA bytes are reused verbatim.
func BuildWheel(
	ctx context.Context,
	srcDir, wheelDir string,
	config Config,
	metadataDir string,
) (string, error) {
	pkg, err := load(ctx, srcDir, config)
	if err != nil {
		return "", err
	}
	opts := masonry.WheelOptions{}
	if metadataDir != "" {
		distInfoName := fmt.Sprintf("%s-%s.dist-info", pkg.FilenameName(), pkg.FilenameVersion())
		opts.MetadataDir = filepath.Join(metadataDir, distInfoName)
	}
	return masonry.BuildWheel(ctx, pkg, srcDir, wheelDir, opts)
}

// BuildEditable emits the editable wheel into wheelDir and returns its
// filename.
func BuildEditable(ctx context.Context, srcDir, wheelDir string, config Config) (string, error) {
	pkg, err := load(ctx, srcDir, config)
	if err != nil {
		return "", err
	}
	return masonry.BuildEditable(ctx, pkg, srcDir, wheelDir)
}
