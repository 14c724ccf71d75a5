// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep517_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/masonry/pkg/python/pep517"
	"github.com/datawire/masonry/pkg/testutil"
)

func demoTree(t *testing.T) string {
	t.Helper()
	srcDir := t.TempDir()
	files := map[string]string{
		"pyproject.toml": `
[project]
name = "demo"
version = "0.1"
dependencies = ["requests>=2.13"]
`,
		"demo/__init__.py": "",
	}
	for name, content := range files {
		full := filepath.Join(srcDir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return srcDir
}

func TestGetRequires(t *testing.T) {
	ctx := context.Background()
	srcDir := demoTree(t)

	sdistRequires, err := pep517.GetRequiresForBuildSdist(ctx, srcDir, nil)
	require.NoError(t, err)
	assert.Empty(t, sdistRequires)

	wheelRequires, err := pep517.GetRequiresForBuildWheel(ctx, srcDir, nil)
	require.NoError(t, err)
	assert.Empty(t, wheelRequires)
}

func TestGetRequiresWithBuildScript(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	manifestBody := `
[build-system]
requires = ["masonry", "cython"]
build-backend = "masonry.api"

[tool.masonry]
name = "demo"
version = "0.1"
packages = [{ include = "demo" }]

[tool.masonry.build]
script = "build.py"
`
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "pyproject.toml"), []byte(manifestBody), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(srcDir, "demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "demo", "__init__.py"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "build.py"), nil, 0o644))

	requires, err := pep517.GetRequiresForBuildWheel(ctx, srcDir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"masonry", "cython"}, requires)
}

func TestPrepareMetadata(t *testing.T) {
	ctx := context.Background()
	srcDir := demoTree(t)
	metadataDir := t.TempDir()

	distInfoName, err := pep517.PrepareMetadataForBuildWheel(ctx, srcDir, metadataDir, nil)
	require.NoError(t, err)
	assert.Equal(t, "demo-0.1.dist-info", distInfoName)

	metadata, err := os.ReadFile(filepath.Join(metadataDir, distInfoName, "METADATA"))
	require.NoError(t, err)
	assert.Contains(t, string(metadata), "Name: demo\n")

	record, err := os.ReadFile(filepath.Join(metadataDir, distInfoName, "RECORD"))
	require.NoError(t, err)
	assert.Contains(t, string(record), "demo-0.1.dist-info/METADATA,sha256=")
	assert.Contains(t, string(record), "demo-0.1.dist-info/RECORD,,\n")
}

func TestBuildHooks(t *testing.T) {
	ctx := context.Background()
	srcDir := demoTree(t)
	outDir := t.TempDir()

	sdistName, err := pep517.BuildSdist(ctx, srcDir, outDir, nil)
	require.NoError(t, err)
	assert.Equal(t, "demo-0.1.tar.gz", sdistName)
	assert.FileExists(t, filepath.Join(outDir, sdistName))

	wheelName, err := pep517.BuildWheel(ctx, srcDir, outDir, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "demo-0.1-py3-none-any.whl", wheelName)
	assert.FileExists(t, filepath.Join(outDir, wheelName))

	editableName, err := pep517.BuildEditable(ctx, srcDir, outDir, nil)
	require.NoError(t, err)
	assert.Equal(t, wheelName, editableName)
}

func TestBuildWheelReusesPreparedMetadata(t *testing.T) {
	ctx := context.Background()
	srcDir := demoTree(t)
	metadataDir := t.TempDir()
	outDir := t.TempDir()

	distInfoName, err := pep517.PrepareMetadataForBuildWheel(ctx, srcDir, metadataDir, nil)
	require.NoError(t, err)

	// doctor the prepared METADATA so reuse is observable
	metadataFile := filepath.Join(metadataDir, distInfoName, "METADATA")
	doctored := "Metadata-Version: 2.3\nName: demo\nVersion: 0.1\nSummary: doctored\n"
	require.NoError(t, os.WriteFile(metadataFile, []byte(doctored), 0o644))

	wheelName, err := pep517.BuildWheel(ctx, srcDir, outDir, nil, metadataDir)
	require.NoError(t, err)
	got := testutil.ReadWheelFile(t, filepath.Join(outDir, wheelName), distInfoName+"/METADATA")
	assert.Equal(t, doctored, string(got))
}

func TestHookErrorsCarryFieldPaths(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	manifestBody := "[project]\nname = \"demo\"\nversion = \"0.1\"\ndependencies = [\"&&&\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "pyproject.toml"), []byte(manifestBody), 0o644))

	_, err := pep517.BuildSdist(ctx, srcDir, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project.dependencies[0]")
}
