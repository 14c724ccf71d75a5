// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package manifest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/masonry/pkg/manifest"
	"github.com/datawire/masonry/pkg/packages"
)

func parse(t *testing.T, body string) (*packages.Package, error) {
	t.Helper()
	return manifest.Parse(context.Background(), "pyproject.toml", []byte(body), manifest.Options{})
}

func mustParse(t *testing.T, body string) *packages.Package {
	t.Helper()
	pkg, err := parse(t, body)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	return pkg
}

func TestMinimalProject(t *testing.T) {
	t.Parallel()
	pkg := mustParse(t, `
[project]
name = "demo"
version = "0.1"
`)
	assert.Equal(t, "demo", pkg.Name)
	assert.Equal(t, "demo", pkg.CanonicalName())
	require.NotNil(t, pkg.Version)
	assert.Equal(t, "0.1", pkg.Version.String())
	assert.Empty(t, pkg.MainDependencies())
}

func TestProjectMetadata(t *testing.T) {
	t.Parallel()
	pkg := mustParse(t, `
[project]
name = "My_Demo.Package"
version = "1.2.3"
description = "A demonstration package"
readme = "README.md"
requires-python = ">=3.8,<4.0"
license = { text = "MIT" }
keywords = ["demo", "example"]
classifiers = [
    "Development Status :: 4 - Beta",
    "Programming Language :: Python :: 3",
]
authors = [
    { name = "Jane Doe", email = "jane@example.com" },
    "John Roe <john@example.com>",
]

[project.urls]
Homepage = "https://example.com"
`)
	assert.Equal(t, "my-demo-package", pkg.CanonicalName())
	assert.Equal(t, "my_demo_package", pkg.FilenameName())
	assert.Equal(t, "A demonstration package", pkg.Description)
	assert.Equal(t, []string{"README.md"}, pkg.ReadmePaths)
	assert.Equal(t, ">=3.8,<4.0", pkg.RequiresPython.String())
	assert.Equal(t, "MIT", pkg.License.Text)
	assert.Equal(t, []packages.Person{
		{Name: "Jane Doe", Email: "jane@example.com"},
		{Name: "John Roe", Email: "john@example.com"},
	}, pkg.Authors)
	assert.Equal(t, "https://example.com", pkg.URLs["Homepage"])
}

func TestProjectDependencies(t *testing.T) {
	t.Parallel()
	pkg := mustParse(t, `
[project]
name = "demo"
version = "0.1"
dependencies = [
    "requests[security]>=2.13,<3.0",
    'tomli>=1.1.0 ; python_version < "3.11"',
]

[project.optional-dependencies]
socks = ["PySocks>=1.5.6"]
`)
	main := pkg.MainDependencies()
	require.Len(t, main, 3)
	assert.Equal(t, "requests", main[0].Name)
	assert.Equal(t, ">=2.13,<3.0", main[0].Constraint.String())
	assert.Equal(t, []string{"security"}, main[0].Extras)
	assert.Equal(t, "tomli", main[1].Name)
	assert.Equal(t, "pysocks", main[2].CanonicalName())
	assert.True(t, main[2].Optional)
	assert.Equal(t, []string{"pysocks"}, pkg.Extras["socks"])
}

func TestLegacyManifest(t *testing.T) {
	t.Parallel()
	pkg := mustParse(t, `
[tool.masonry]
name = "demo"
version = "2.0"
description = "Legacy layout"
authors = ["Jane Doe <jane@example.com>"]
license = "Apache-2.0"
homepage = "https://example.com"
packages = [{ include = "demo", from = "src" }]

[tool.masonry.dependencies]
python = "^3.8"
requests = { version = "^2.13", extras = ["security"] }
cachecontrol = [
    { version = ">=0.12", python = "<3.10" },
    { version = ">=0.13", python = ">=3.10" },
]

[tool.masonry.group.dev.dependencies]
pytest = "^7.0"

[tool.masonry.extras]
web = ["requests"]
`)
	assert.Equal(t, ">=3.8,<4.0", pkg.RequiresPython.String())
	assert.Equal(t, "Apache-2.0", pkg.License.Expression)
	assert.Equal(t, "https://example.com", pkg.URLs["Homepage"])

	main := pkg.MainDependencies()
	require.Len(t, main, 3)
	assert.Equal(t, "cachecontrol", main[0].CanonicalName())
	assert.Equal(t, "cachecontrol", main[1].CanonicalName())
	assert.Equal(t, "requests", main[2].CanonicalName())
	assert.Equal(t, ">=2.13,<3.0", main[2].Constraint.String())

	dev := pkg.Group("dev")
	require.NotNil(t, dev)
	require.Len(t, dev.Dependencies, 1)
	assert.Equal(t, "pytest", dev.Dependencies[0].Name)
	assert.Equal(t, ">=7.0,<8.0", dev.Dependencies[0].Constraint.String())

	require.Len(t, pkg.Packages, 1)
	assert.Equal(t, "demo", pkg.Packages[0].Include)
	assert.Equal(t, "src", pkg.Packages[0].From)
}

func TestReconciliation(t *testing.T) {
	t.Parallel()

	t.Run("redeclared-not-dynamic", func(t *testing.T) {
		t.Parallel()
		_, err := parse(t, `
[project]
name = "demo"
version = "0.1"

[tool.masonry]
version = "0.2"
`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version")
	})

	t.Run("dynamic-legacy-wins", func(t *testing.T) {
		t.Parallel()
		pkg := mustParse(t, `
[project]
name = "demo"
version = "0.1"
dynamic = ["version"]

[tool.masonry]
version = "0.2"
`)
		require.NotNil(t, pkg.Version)
		assert.Equal(t, "0.2", pkg.Version.String())
	})

	t.Run("name-must-not-be-dynamic", func(t *testing.T) {
		t.Parallel()
		_, err := parse(t, `
[project]
name = "demo"
version = "0.1"
dynamic = ["name"]
`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("dynamic-without-legacy-value", func(t *testing.T) {
		t.Parallel()
		pkg := mustParse(t, `
[project]
name = "demo"
dynamic = ["version"]
`)
		assert.Nil(t, pkg.Version)
	})
}

func TestValidationAggregates(t *testing.T) {
	t.Parallel()
	_, err := parse(t, `
[project]
name = "demo"
version = "not-a-version"
description = "has a\nnewline"
dependencies = ["&&&bogus"]
`)
	require.Error(t, err)
	// all three problems are reported at once
	assert.Contains(t, err.Error(), "project.version")
	assert.Contains(t, err.Error(), "project.description")
	assert.Contains(t, err.Error(), "project.dependencies[0]")
}

func TestSyntaxError(t *testing.T) {
	t.Parallel()
	_, err := parse(t, `[project`)
	var synErr *manifest.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestValidation(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Body    string
		ErrPath string // empty = valid
	}
	testcases := map[string]TestCase{
		"missing-name": {
			Body:    "[project]\nversion = \"0.1\"\n",
			ErrPath: "project.name",
		},
		"invalid-name": {
			Body:    "[project]\nname = \"-bad-\"\nversion = \"0.1\"\n",
			ErrPath: "project.name",
		},
		"missing-version": {
			Body:    "[project]\nname = \"demo\"\n",
			ErrPath: "project.version",
		},
		"bad-readme-suffix": {
			Body:    "[project]\nname = \"demo\"\nversion = \"0.1\"\nreadme = \"README.pdf\"\n",
			ErrPath: "project.readme",
		},
		"multi-readme": {
			Body: "[tool.masonry]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"readme = [\"README.md\", \"CHANGELOG.rst\"]\n",
		},
		"bad-author": {
			Body: "[project]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"authors = [\"oops@half <\"]\n",
			ErrPath: "project.authors[0]",
		},
		"bad-script": {
			Body: "[project]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"[project.scripts]\ndemo = \"not a callable\"\n",
			ErrPath: "project.scripts.demo",
		},
		"good-script": {
			Body: "[project]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"[project.scripts]\ndemo = \"demo.cli:main\"\n",
		},
		"unknown-classifier": {
			Body: "[project]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"classifiers = [\"Made Up :: Thing\"]\n",
			ErrPath: "project.classifiers[0]",
		},
		"unknown-extras-reference": {
			Body: "[tool.masonry]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"[tool.masonry.extras]\nweb = [\"requests\"]\n",
			ErrPath: "tool.masonry.extras.web",
		},
		"file-script": {
			Body: "[tool.masonry]\nname = \"demo\"\nversion = \"0.1\"\n" +
				"[tool.masonry.scripts]\ndemo = { reference = \"bin/demo.sh\", type = \"file\" }\n",
		},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			pkg, err := parse(t, tcData.Body)
			if tcData.ErrPath == "" {
				require.NoError(t, err)
				require.NotNil(t, pkg)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tcData.ErrPath)
			}
		})
	}

	t.Run("custom-classifiers-allowed", func(t *testing.T) {
		t.Parallel()
		_, err := manifest.Parse(context.Background(), "pyproject.toml", []byte(
			"[project]\nname = \"demo\"\nversion = \"0.1\"\n"+
				"classifiers = [\"Made Up :: Thing\"]\n"),
			manifest.Options{AllowCustomClassifiers: true})
		assert.NoError(t, err)
	})
}

func TestEntryPoints(t *testing.T) {
	t.Parallel()
	pkg := mustParse(t, `
[project]
name = "demo"
version = "0.1"

[project.scripts]
demo = "demo.cli:main"

[project.gui-scripts]
demo-gui = "demo.gui:main"

[project.entry-points."demo.plugins"]
builtin = "demo.plugins.builtin"
`)
	assert.Equal(t, packages.ScriptTarget{
		Reference: "demo.cli:main",
		Type:      packages.ScriptCallable,
	}, pkg.Scripts["demo"])
	assert.Equal(t, "demo.gui:main", pkg.EntryPoints["gui_scripts"]["demo-gui"])
	assert.Equal(t, "demo.plugins.builtin", pkg.EntryPoints["demo.plugins"]["builtin"])
}

func TestBuildSection(t *testing.T) {
	t.Parallel()
	pkg := mustParse(t, `
[build-system]
requires = ["masonry", "cython"]
build-backend = "masonry.api"

[tool.masonry]
name = "demo"
version = "0.1"

[tool.masonry.build]
script = "build.py"
generate-setup-file = false
`)
	require.NotNil(t, pkg.Build)
	assert.Equal(t, "build.py", pkg.Build.Script)
	assert.Equal(t, []string{"masonry", "cython"}, pkg.Build.Requires)
}
