// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Parsed constraints are memoized per-process, keyed by the input string.
// Entries are only ever whole parse results, which are immutable, so sharing
// them between callers is safe.  Only successful parses are cached.
//
//nolint:gochecknoglobals // process-local cache
var constraintCache, _ = lru.New[string, VersionSet](4096)

func constraintCacheGet(key string) (VersionSet, bool) {
	return constraintCache.Get(key)
}

func constraintCachePut(key string, set VersionSet) {
	constraintCache.Add(key, set)
}
