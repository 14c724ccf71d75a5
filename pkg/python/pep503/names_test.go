// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep503_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datawire/masonry/pkg/python/pep503"
	"github.com/datawire/masonry/pkg/testutil"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"Django":           "django",
		"my.package":       "my-package",
		"My__Package":      "my-package",
		"my-.-.package":    "my-package",
		"requests":         "requests",
		"zope.interface":   "zope-interface",
		"ruamel.yaml.clib": "ruamel-yaml-clib",
		"  spaced-name  ":  "spaced-name",
	}
	for input, expected := range testcases {
		input, expected := input, expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, pep503.NormalizeName(input))
		})
	}

	// normalization is idempotent
	testutil.QuickCheck(t,
		func(name string) bool {
			once := pep503.NormalizeName(name)
			return pep503.NormalizeName(once) == once
		},
		testutil.QuickConfig{},
		[]interface{}{"My..Weird__Name"},
	)
}

func TestEscapeName(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"Django":         "django",
		"my.package":     "my_package",
		"zope.interface": "zope_interface",
	}
	for input, expected := range testcases {
		input, expected := input, expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, pep503.EscapeName(input))
		})
	}
}

func TestValidName(t *testing.T) {
	t.Parallel()
	testcases := map[string]bool{
		"demo":      true,
		"demo-1":    true,
		"a":         true,
		"A.B-C_D":   true,
		"-leading":  false,
		"trailing.": false,
		"":          false,
		"has space": false,
		"unicode-é": false,
	}
	for input, expected := range testcases {
		input, expected := input, expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, pep503.ValidName(input))
		})
	}
}
