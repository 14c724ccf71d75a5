// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package reproducible pins the timestamps that go into build artifacts, per
// the reproducible-builds.org SOURCE_DATE_EPOCH convention.
package reproducible

import (
	"os"
	"strconv"
	"time"
)

// fallbackEpoch is used when SOURCE_DATE_EPOCH is unset: 2016-01-01T00:00:00Z,
// safely above the ZIP format's DOS-time floor of 1980, so the same instant
// can stamp both tar and zip entries.
const fallbackEpoch = 1451606400

// Now returns the instant to stamp archive entries with: SOURCE_DATE_EPOCH
// (decimal seconds since 1970-01-01 UTC) when set, a fixed constant
// otherwise.  Builds of the same tree therefore produce byte-identical
// archives across runs.
func Now() time.Time {
	if secs, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64); err == nil {
		return clampToDOSFloor(time.Unix(secs, 0).UTC())
	}
	return time.Unix(fallbackEpoch, 0).UTC()
}

// clampToDOSFloor raises pre-1980 instants to the earliest timestamp the ZIP
// format can represent.
func clampToDOSFloor(t time.Time) time.Time {
	floor := time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	if t.Before(floor) {
		return floor
	}
	return t
}
