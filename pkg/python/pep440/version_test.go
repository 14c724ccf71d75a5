// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/masonry/pkg/python/pep440"
)

func mustParseVersion(t *testing.T, str string) pep440.Version {
	t.Helper()
	ver, err := pep440.ParseVersion(str)
	require.NoError(t, err)
	require.NotNil(t, ver)
	return *ver
}

func TestSort(t *testing.T) {
	t.Parallel()
	testcases := map[string][]string{
		"final-releases": {
			"0.9",
			"0.9.1",
			"0.9.2",
			"0.9.10",
			"0.9.11",
			"1.0",
			"1.0.1",
			"1.1",
			"2.0",
			"2.0.1",
		},
		"date-based": {
			"2012.4",
			"2012.7",
			"2012.10",
			"2013.1",
			"2013.6",
		},
		"pre-releases": {
			"4.3a2",
			"4.3b2",
			"4.3rc2",
			"4.3",
		},
		"epochs": {
			"2013.10",
			"2014.04",
			"1!1.0",
			"1!1.1",
			"1!2.0",
		},
		"suffix-ordering": {
			"1.0.dev456",
			"1.0a1",
			"1.0a2.dev456",
			"1.0a12.dev456",
			"1.0a12",
			"1.0b1.dev456",
			"1.0b2",
			"1.0b2.post345.dev456",
			"1.0b2.post345",
			"1.0rc1.dev456",
			"1.0rc1",
			"1.0",
			"1.0+abc.5",
			"1.0+abc.7",
			"1.0+5",
			"1.0.post456.dev34",
			"1.0.post456",
			"1.1.dev1",
		},
		"local-segments": {
			"1.0",
			"1.0+a",
			"1.0+z",
			"1.0+0",
			"1.0+0.z",
			"1.0+0.0",
			"1.0+1",
			"1.0+10",
			"1.1",
		},
	}
	for tcName, tcData := range testcases {
		strs := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			rand := rand.New(rand.NewSource(4)) //nolint:gosec // deterministic shuffle

			vers := make([]*pep440.Version, 0, len(strs))
			exps := make([]string, 0, len(strs))
			for _, str := range strs {
				ver, err := pep440.ParseVersion(str)
				require.NoError(t, err)
				vers = append(vers, ver)
				exps = append(exps, ver.String())
			}

			rand.Shuffle(len(vers), func(i, j int) {
				vers[i], vers[j] = vers[j], vers[i]
			})
			sort.Slice(vers, func(i, j int) bool {
				return vers[i].Cmp(*vers[j]) < 0
			})

			acts := make([]string, 0, len(strs))
			for _, ver := range vers {
				acts = append(acts, ver.String())
			}
			assert.Equal(t, exps, acts)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Input      string
		Normalized string // empty for parse error
	}
	testcases := map[string]TestCase{
		"case-sensitivity":             {"1.1RC1", "1.1rc1"},
		"integer-normalization-1":      {"00", "0"},
		"integer-normalization-2":      {"09000", "9000"},
		"local-integer-literal":        {"1.0+foo0100", "1.0+foo0100"},
		"pre-release-separators-1":     {"1.1.a1", "1.1a1"},
		"pre-release-separators-2":     {"1.1-a1", "1.1a1"},
		"pre-release-separators-3":     {"1.0a.1", "1.0a1"},
		"pre-release-spelling-1":       {"1.1alpha1", "1.1a1"},
		"pre-release-spelling-2":       {"1.1beta2", "1.1b2"},
		"pre-release-spelling-3":       {"1.1c3", "1.1rc3"},
		"pre-release-spelling-4":       {"1.1preview4", "1.1rc4"},
		"implicit-pre-release-number":  {"1.2a", "1.2a0"},
		"post-release-separators-1":    {"1.2-post2", "1.2.post2"},
		"post-release-separators-2":    {"1.2post2", "1.2.post2"},
		"post-release-spelling":        {"1.0-r4", "1.0.post4"},
		"implicit-post-release-number": {"1.2.post", "1.2.post0"},
		"implicit-post-release":        {"1.0-1", "1.0.post1"},
		"implicit-post-release-bad":    {"1.0-", ""},
		"dev-release-separators":       {"1.2-dev2", "1.2.dev2"},
		"implicit-dev-release-number":  {"1.2.dev", "1.2.dev0"},
		"local-separators":             {"1.0+ubuntu-1", "1.0+ubuntu.1"},
		"preceding-v":                  {"v1.0", "1.0"},
		"whitespace":                   {"1.0\n", "1.0"},
		"trailing-dot":                 {"1.0.", ""},
		"empty":                        {"", ""},
		"bare-wildcard":                {"1.2.*", ""},
		"garbage":                      {"foobar", ""},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			ver, err := pep440.ParseVersion(tcData.Input)
			if tcData.Normalized == "" {
				assert.Error(t, err)
				assert.Nil(t, ver)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, ver)
				assert.Equal(t, tcData.Normalized, ver.String())

				// round-trip: parse(str(parse(v))) == parse(v)
				again, err := pep440.ParseVersion(ver.String())
				require.NoError(t, err)
				assert.Equal(t, ver, again)
			}
		})
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	a := mustParseVersion(t, "1.0")
	b := mustParseVersion(t, "1.0.0")
	assert.Zero(t, a.Cmp(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.String(), b.String())

	c := mustParseVersion(t, "1.0.1")
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestTotalOrder(t *testing.T) {
	t.Parallel()
	corpus := []string{
		"0.1", "1.0.dev1", "1.0a1", "1.0b2", "1.0rc1", "1.0", "1.0.post1",
		"1.0.0", "1.1", "2!0.5", "1.0+local.1",
	}
	for _, aStr := range corpus {
		for _, bStr := range corpus {
			a := mustParseVersion(t, aStr)
			b := mustParseVersion(t, bStr)
			lt := a.Cmp(b) < 0
			eq := a.Cmp(b) == 0
			gt := a.Cmp(b) > 0
			count := 0
			for _, x := range []bool{lt, eq, gt} {
				if x {
					count++
				}
			}
			assert.Equal(t, 1, count, "exactly one of <, ==, > must hold for %q vs %q", aStr, bStr)
			assert.Equal(t, a.Cmp(b), -b.Cmp(a), "antisymmetry for %q vs %q", aStr, bStr)
		}
	}
}

func TestNext(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Input string
		Major string
		Minor string
		Patch string
		Exact bool
	}
	testcases := map[string]TestCase{
		"simple": {"1.2.3", "2.0.0", "1.3.0", "1.2.4", true},
		"short":  {"1.2", "2.0", "1.3", "1.2.1", true},
		"single": {"2", "3", "2.1", "2.0.1", true},
		"pre":    {"1.2.3a1", "2.0.0", "1.3.0", "1.2.4", false},
		"dev":    {"1.2.3.dev2", "2.0.0", "1.3.0", "1.2.4", false},
		"post":   {"1.2.3.post1", "2.0.0", "1.3.0", "1.2.4", false},
		"local":  {"1.2.3+x", "2.0.0", "1.3.0", "1.2.4", false},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			ver := mustParseVersion(t, tcData.Input)

			major, exact := ver.NextMajor()
			assert.Equal(t, tcData.Major, major.String())
			assert.Equal(t, tcData.Exact, exact)

			minor, exact := ver.NextMinor()
			assert.Equal(t, tcData.Minor, minor.String())
			assert.Equal(t, tcData.Exact, exact)

			patch, exact := ver.NextPatch()
			assert.Equal(t, tcData.Patch, patch.String())
			assert.Equal(t, tcData.Exact, exact)
		})
	}
}

func TestStable(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"1.2.3":          "1.2.3",
		"1.2.3a1":        "1.2.3",
		"1.2.3.dev4":     "1.2.3",
		"1.2.3.post1":    "1.2.3.post1",
		"1.0.post2.dev3": "1.0.post2",
		"1.0a1.post2":    "1.0",
		"1.2.3+local":    "1.2.3",
	}
	for input, expected := range testcases {
		input, expected := input, expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, mustParseVersion(t, input).Stable().String())
		})
	}
}

func TestIsPreRelease(t *testing.T) {
	t.Parallel()
	testcases := map[string]bool{
		"1.0":       false,
		"1.0a1":     true,
		"1.0b2":     true,
		"1.0rc1":    true,
		"1.0.dev0":  true,
		"1.0.post1": false,
		"1.0+dirty": false,
	}
	for input, expected := range testcases {
		input, expected := input, expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, mustParseVersion(t, input).IsPreRelease())
		})
	}
}
