// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/masonry/pkg/python/pep508"
)

func TestParseMarker(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Input     string
		Canonical string // "<error>" for parse errors
	}
	testcases := map[string]TestCase{
		"simple":        {`sys_platform == "linux"`, `sys_platform == "linux"`},
		"single-quotes": {`sys_platform == 'linux'`, `sys_platform == "linux"`},
		"spaceless":     {`sys_platform=="linux"`, `sys_platform == "linux"`},
		"and": {
			`python_version >= "3.8" and sys_platform == "linux"`,
			`python_version >= "3.8" and sys_platform == "linux"`,
		},
		"or": {
			`sys_platform == "linux" or sys_platform == "darwin"`,
			`sys_platform == "linux" or sys_platform == "darwin"`,
		},
		"parens": {
			`python_version >= "3.8" and (sys_platform == "linux" or sys_platform == "darwin")`,
			`python_version >= "3.8" and (sys_platform == "linux" or sys_platform == "darwin")`,
		},
		"redundant-parens": {`(os_name == "posix")`, `os_name == "posix"`},
		"not-in":           {`platform_machine not in "x86_64 s390x"`, `platform_machine not in "x86_64 s390x"`},
		"reversed-in":      {`'linux' in sys_platform`, `"linux" in sys_platform`},
		"reversed-cmp":     {`"3.8" <= python_version`, `python_version >= "3.8"`},
		"extra":            {`extra == "security"`, `extra == "security"`},
		"empty":            {``, ``},
		"unknown-attr":     {`favorite_color == "blue"`, "<error>"},
		"missing-op":       {`sys_platform "linux"`, "<error>"},
		"unterminated":     {`sys_platform == "linux`, "<error>"},
		"dangling-and":     {`sys_platform == "linux" and`, "<error>"},
		"both-literals":    {`"a" == "b"`, "<error>"},
		"bad-op":           {`sys_platform <> "linux"`, "<error>"},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			marker, err := pep508.ParseMarker(tcData.Input)
			if tcData.Canonical == "<error>" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tcData.Canonical, marker.String())

			// round-trip
			again, err := pep508.ParseMarker(marker.String())
			require.NoError(t, err)
			assert.Equal(t, marker.String(), again.String())
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	linuxPy310 := pep508.Environment{
		"os_name":             "posix",
		"sys_platform":        "linux",
		"platform_system":     "Linux",
		"python_version":      "3.10",
		"python_full_version": "3.10.4",
		"platform_machine":    "x86_64",
	}
	windowsPy38 := pep508.Environment{
		"os_name":             "nt",
		"sys_platform":        "win32",
		"platform_system":     "Windows",
		"python_version":      "3.8",
		"python_full_version": "3.8.10",
		"platform_machine":    "AMD64",
	}

	type TestCase struct {
		Marker  string
		Linux   bool
		Windows bool
	}
	testcases := map[string]TestCase{
		"platform-eq":  {`sys_platform == "linux"`, true, false},
		"platform-neq": {`sys_platform != "linux"`, false, true},
		// "3.10" >= "3.8" is false as strings; versions must compare numerically
		"version-ge":      {`python_version >= "3.9"`, true, false},
		"version-lt":      {`python_full_version < "3.9.0"`, false, true},
		"version-compat":  {`python_version ~= "3.8"`, true, true},
		"and":             {`sys_platform == "linux" and python_version >= "3.9"`, true, false},
		"or":              {`sys_platform == "win32" or python_version >= "3.9"`, true, true},
		"reversed-in":     {`"linux" in sys_platform`, true, false},
		"alternatives-in": {`platform_machine in "x86_64|aarch64"`, true, false},
		"not-in":          {`os_name not in "nt ce"`, true, false},
		"missing-attr":    {`extra == "security"`, false, false},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			marker, err := pep508.ParseMarker(tcData.Marker)
			require.NoError(t, err)
			assert.Equal(t, tcData.Linux, marker.Evaluate(linuxPy310), "linux env")
			assert.Equal(t, tcData.Windows, marker.Evaluate(windowsPy38), "windows env")
		})
	}

	t.Run("constants", func(t *testing.T) {
		t.Parallel()
		assert.True(t, pep508.Always.Evaluate(linuxPy310))
		assert.False(t, pep508.Never.Evaluate(linuxPy310))
	})
}

func TestIntersect(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		A, B      string
		Canonical string
	}
	testcases := map[string]TestCase{
		"python-ranges": {
			`python_version >= "3.8" and python_version < "4.0"`,
			`python_version < "3.10"`,
			`python_version >= "3.8" and python_version < "3.10"`,
		},
		"same-atom": {
			`sys_platform == "linux"`,
			`sys_platform == "linux"`,
			`sys_platform == "linux"`,
		},
		"distinct-attrs": {
			`sys_platform == "linux"`,
			`os_name == "posix"`,
			`sys_platform == "linux" and os_name == "posix"`,
		},
		"contradiction": {
			`sys_platform == "linux"`,
			`sys_platform == "win32"`,
			`<never>`,
		},
		"python-contradiction": {
			`python_version >= "4.0"`,
			`python_version < "3.0"`,
			`<never>`,
		},
		"implied-neq": {
			`sys_platform == "linux"`,
			`sys_platform != "win32"`,
			`sys_platform == "linux"`,
		},
		"or-distributes": {
			`sys_platform == "linux" or sys_platform == "darwin"`,
			`python_version >= "3.8"`,
			`sys_platform == "linux" and python_version >= "3.8"` +
				` or sys_platform == "darwin" and python_version >= "3.8"`,
		},
		"extras-stack": {
			`extra == "a"`,
			`extra == "b"`,
			`extra == "a" and extra == "b"`,
		},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			a := pep508.MustParseMarker(tcData.A)
			b := pep508.MustParseMarker(tcData.B)
			assert.Equal(t, tcData.Canonical, pep508.Intersect(a, b).String())
		})
	}

	t.Run("identity", func(t *testing.T) {
		t.Parallel()
		m := pep508.MustParseMarker(`sys_platform == "linux"`)
		assert.Equal(t, m.String(), pep508.Intersect(m, pep508.Always).String())
		assert.Equal(t, m.String(), pep508.Intersect(pep508.Always, m).String())
		assert.Equal(t, pep508.Never, pep508.Intersect(m, pep508.Never))
	})
}

func TestIntersectAgreesWithEvaluate(t *testing.T) {
	t.Parallel()

	markers := []string{
		``,
		`sys_platform == "linux"`,
		`sys_platform != "linux"`,
		`python_version >= "3.9"`,
		`python_version < "3.9"`,
		`sys_platform == "linux" and python_version >= "3.9"`,
		`sys_platform == "win32" or python_version < "3.10"`,
		`extra == "security"`,
	}
	envs := []pep508.Environment{
		{"sys_platform": "linux", "python_version": "3.8"},
		{"sys_platform": "linux", "python_version": "3.10"},
		{"sys_platform": "win32", "python_version": "3.10"},
		{"sys_platform": "darwin", "python_version": "3.12", "extra": "security"},
	}

	for _, aStr := range markers {
		for _, bStr := range markers {
			a := pep508.MustParseMarker(aStr)
			b := pep508.MustParseMarker(bStr)
			intersection := pep508.Intersect(a, b)
			union := pep508.Union(a, b)
			for i, env := range envs {
				assert.Equal(t,
					a.Evaluate(env) && b.Evaluate(env),
					intersection.Evaluate(env),
					"intersect(%q, %q) on env#%d", aStr, bStr, i)
				assert.Equal(t,
					a.Evaluate(env) || b.Evaluate(env),
					union.Evaluate(env),
					"union(%q, %q) on env#%d", aStr, bStr, i)
			}
		}
	}
}

func TestExcludeExtra(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Marker   string
		Extra    string
		Residual string
	}
	testcases := map[string]TestCase{
		"bare-extra": {`extra == "security"`, "security", ``},
		"extra-and-python": {
			`extra == "security" and python_version >= "3.8"`,
			"security",
			`python_version >= "3.8"`,
		},
		"other-extra": {`extra == "socks"`, "security", `extra == "socks"`},
		"normalized":  {`extra == "Type_Checks"`, "type-checks", ``},
		"no-extra":    {`sys_platform == "linux"`, "security", `sys_platform == "linux"`},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			marker := pep508.MustParseMarker(tcData.Marker)
			assert.Equal(t, tcData.Residual, pep508.ExcludeExtra(marker, tcData.Extra).String())
		})
	}
}

func TestOnlyPython(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Marker string
		Range  string
	}
	testcases := map[string]TestCase{
		"range":        {`python_version >= "3.9" and python_version < "4.0"`, ">=3.9,<4.0"},
		"lower":        {`python_version >= "3.8"`, ">=3.8"},
		"full-version": {`python_full_version >= "3.8.1"`, ">=3.8.1"},
		"unrelated":    {`sys_platform == "linux"`, "*"},
		"always":       {``, "*"},
		"disjunction": {
			`python_version < "3.0" or python_version >= "3.6"`,
			"<3.0 || >=3.6",
		},
		"mixed": {`sys_platform == "linux" and python_version >= "3.8"`, ">=3.8"},
	}
	for tcName, tcData := range testcases {
		tcData := tcData
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			set, err := pep508.OnlyPython(pep508.MustParseMarker(tcData.Marker))
			require.NoError(t, err)
			assert.Equal(t, tcData.Range, set.String())
		})
	}

	t.Run("never", func(t *testing.T) {
		t.Parallel()
		set, err := pep508.OnlyPython(pep508.Never)
		require.NoError(t, err)
		assert.True(t, set.IsEmpty())
	})
}
