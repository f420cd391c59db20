// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the kiseha packages.
package util

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatCount renders a counter with thousands separators ("12,345").
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatAge renders how long ago t was ("3 minutes ago").
func FormatAge(t time.Time) string {
	return humanize.Time(t)
}

// FormatBytes renders a size such as "1.2 MB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
