// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package manifest

// The TOML shapes of the two manifest tables.  Fields that accept more than
// one TOML shape (readme, license, scripts, legacy dependencies) decode into
// interface{} and are interpreted during validation, so a shape violation
// becomes a SchemaError with a field path instead of a decoder error.

type fileSchema struct {
	Project     *projectTable     `toml:"project"`
	Tool        toolTable         `toml:"tool"`
	BuildSystem *buildSystemTable `toml:"build-system"`
}

type toolTable struct {
	Masonry *legacyTable `toml:"masonry"`
}

type buildSystemTable struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
}

// projectTable is the standardized `[project]` table (PEP 621).
type projectTable struct {
	Name           string      `toml:"name"`
	Version        string      `toml:"version"`
	Description    string      `toml:"description"`
	Readme         interface{} `toml:"readme"`
	RequiresPython string      `toml:"requires-python"`
	License        interface{} `toml:"license"`

	Authors     []interface{} `toml:"authors"`
	Maintainers []interface{} `toml:"maintainers"`

	Keywords    []string          `toml:"keywords"`
	Classifiers []string          `toml:"classifiers"`
	URLs        map[string]string `toml:"urls"`

	Scripts     map[string]interface{}       `toml:"scripts"`
	GUIScripts  map[string]string            `toml:"gui-scripts"`
	EntryPoints map[string]map[string]string `toml:"entry-points"`

	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`

	Dynamic []string `toml:"dynamic"`
}

// legacyTable is the tool-specific `[tool.masonry]` table.
type legacyTable struct {
	Name        string      `toml:"name"`
	Version     string      `toml:"version"`
	Description string      `toml:"description"`
	Readme      interface{} `toml:"readme"`
	License     string      `toml:"license"`

	Authors     []string `toml:"authors"`
	Maintainers []string `toml:"maintainers"`

	Keywords    []string `toml:"keywords"`
	Classifiers []string `toml:"classifiers"`

	Homepage      string            `toml:"homepage"`
	Repository    string            `toml:"repository"`
	Documentation string            `toml:"documentation"`
	URLs          map[string]string `toml:"urls"`

	Packages []packageIncludeTable `toml:"packages"`
	Include  []interface{}         `toml:"include"`
	Exclude  []string              `toml:"exclude"`

	Dependencies    map[string]interface{} `toml:"dependencies"`
	DevDependencies map[string]interface{} `toml:"dev-dependencies"`
	Group           map[string]groupTable  `toml:"group"`
	Extras          map[string][]string    `toml:"extras"`

	Scripts map[string]interface{}       `toml:"scripts"`
	Plugins map[string]map[string]string `toml:"plugins"`

	Build *buildTable `toml:"build"`
}

type groupTable struct {
	Optional     bool                   `toml:"optional"`
	Dependencies map[string]interface{} `toml:"dependencies"`
}

type packageIncludeTable struct {
	Include string      `toml:"include"`
	From    string      `toml:"from"`
	Format  interface{} `toml:"format"` // string or array of strings
}

type buildTable struct {
	Script            string `toml:"script"`
	GenerateSetupFile bool   `toml:"generate-setup-file"`
}
