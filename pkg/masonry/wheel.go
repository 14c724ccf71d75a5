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
	"runtime"

	"github.com/datawire/masonry/pkg/packages"
	"github.com/datawire/masonry/pkg/python/pep425"
)

// Generator is the "Generator:" value stamped into WHEEL files.
const Generator = "masonry"

// WheelOptions tune BuildWheel.
type WheelOptions struct {
	// MetadataDir, when non-empty, is a dist-info directory previously
	// produced by PrepareMetadata for the same source tree; its METADATA
	// bytes are reused verbatim.
	MetadataDir string
}

// WheelTag returns the wheel's compatibility tag: "py3-none-any" for pure
// packages; a platform-specific tag when the manifest declares a build
// script for native extensions.
func WheelTag(pkg *packages.Package) pep425.Tag {
	if pkg.Build == nil || pkg.Build.Script == "" {
		return pep425.Tag{Python: "py3", ABI: "none", Platform: "any"}
	}
	return pep425.Tag{Python: "py3", ABI: "none", Platform: hostPlatformTag()}
}

// hostPlatformTag derives the platform tag from the build host; no
// interpreter is probed, so the ABI stays "none".
func hostPlatformTag() string {
	arch := map[string]string{
		"amd64": "x86_64",
		"386":   "i686",
		"arm64": "aarch64",
		"s390x": "s390x",
	}[runtime.GOARCH]
	if arch == "" {
		arch = runtime.GOARCH
	}
	switch runtime.GOOS {
	case "linux":
		return "linux_" + arch
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "macosx_11_0_arm64"
		}
		return "macosx_10_9_x86_64"
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "win_amd64"
		}
		return "win32"
	default:
		return runtime.GOOS + "_" + arch
	}
}

// BuildWheel emits "<name>-<version>-<py>-<abi>-<plat>.whl" into outDir and
// returns the filename.
func BuildWheel(
	ctx context.Context,
	pkg *packages.Package,
	srcDir, outDir string,
	opts WheelOptions,
) (string, error) {
	plan, err := NewPlan(ctx, pkg, srcDir)
	if err != nil {
		return "", err
	}

	metadata, err := wheelMetadata(pkg, srcDir, opts.MetadataDir)
	if err != nil {
		return "", err
	}

	stem := fmt.Sprintf("%s-%s", pkg.FilenameName(), pkg.FilenameVersion())
	tag := WheelTag(pkg)
	filename := fmt.Sprintf("%s-%s.whl", stem, tag)
	distInfoDir := stem + ".dist-info"
	dataDir := stem + ".data"

	err = writeAtomically(filepath.Join(outDir, filename), func(out *os.File) error {
		zipWriter := zip.NewWriter(out)
		builder := newZipBuilder(zipWriter)

		readSource := func(source string) ([]byte, error) {
			return os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(source)))
		}

		for _, entry := range plan.WheelFiles {
			content, err := readSource(entry.Source)
			if err != nil {
				return err
			}
			if err := builder.add(entry.Archive, content, false); err != nil {
				return err
			}
		}
		for _, entry := range plan.ScriptFiles {
			content, err := readSource(entry.Source)
			if err != nil {
				return err
			}
			name := path.Join(dataDir, "scripts", entry.Archive)
			if err := builder.add(name, content, true); err != nil {
				return err
			}
		}
		for _, entry := range plan.LicenseFiles {
			content, err := readSource(entry.Source)
			if err != nil {
				return err
			}
			name := path.Join(distInfoDir, "licenses", entry.Archive)
			if err := builder.add(name, content, false); err != nil {
				return err
			}
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
		return "", fmt.Errorf("masonry.BuildWheel: %w", err)
	}
	return filename, nil
}

// wheelMetadata returns the METADATA bytes: regenerated from the package, or
// reused verbatim from a dist-info directory a frontend carried over from
// PrepareMetadata.
func wheelMetadata(pkg *packages.Package, srcDir, metadataDir string) ([]byte, error) {
	if metadataDir == "" {
		return Metadata(pkg, srcDir)
	}
	data, err := os.ReadFile(filepath.Join(metadataDir, "METADATA"))
	if err != nil {
		return nil, fmt.Errorf("reuse metadata: %w", err)
	}
	return data, nil
}

// WheelFileContent renders the dist-info WHEEL file.
func WheelFileContent(pkg *packages.Package, tag pep425.Tag) []byte {
	pure := "true"
	if pkg.Build != nil && pkg.Build.Script != "" {
		pure = "false"
	}
	return []byte(fmt.Sprintf(
		"Wheel-Version: 1.0\nGenerator: %s\nRoot-Is-Purelib: %s\nTag: %s\n",
		Generator, pure, tag))
}
