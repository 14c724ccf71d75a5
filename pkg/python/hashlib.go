// Copyright (C) 2021-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package python holds small shared Python-isms: the RECORD digest registry
// (hashlib's strong algorithms), the ZIP external-attribute and stat-mode
// models, and the INI dialect that entry_points.txt uses.
package python

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
)

// StrongHashes are the digest algorithms a wheel RECORD may use.  md5 and
// sha1 are excluded: installers rely on RECORD hashes for integrity, so the
// algorithm must be sha256 or better.
//
//nolint:gochecknoglobals // Would be 'const'.
var StrongHashes = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// RecordDigest hashes data and renders the digest the way RECORD rows expect:
// "<algo>=<urlsafe-b64-nopad(digest)>".
func RecordDigest(algo string, data []byte) (string, error) {
	newHasher, ok := StrongHashes[algo]
	if !ok {
		return "", fmt.Errorf("python.RecordDigest: unsupported hash algorithm: %q", algo)
	}
	hasher := newHasher()
	hasher.Write(data)
	return algo + "=" + base64.RawURLEncoding.EncodeToString(hasher.Sum(nil)), nil
}
