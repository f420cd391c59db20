// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the answering client,
// the session controller, and the presentation layers.
package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// LAW CATEGORY TYPE
// =============================================================================

// LawCategory narrows a question to one body of law.
// The zero value is CriminalLaw, which is also the session default.
type LawCategory int

const (
	CriminalLaw LawCategory = iota
	CivilLaw
	RoadTrafficAct
	LaborStandardsAct
	PoliceDutiesAct
)

// DefaultCategory is the category a new session starts with.
const DefaultCategory = CriminalLaw

// CategoryInfo describes a law category for the wire and for display.
type CategoryInfo struct {
	// Code is the value sent to the answering service in the "law" field
	Code string `json:"code"`

	// Label is the Korean display label
	Label string `json:"label"`

	// EnglishLabel is used when the UI locale is English
	EnglishLabel string `json:"english_label"`
}

// =============================================================================
// CATEGORY REGISTRY
// =============================================================================

// categories is indexed by LawCategory. Order is the display order.
var categories = [...]CategoryInfo{
	CriminalLaw:       {Code: "Criminal_Law", Label: "형법", EnglishLabel: "Criminal Law"},
	CivilLaw:          {Code: "Civil_Law", Label: "민법", EnglishLabel: "Civil Law"},
	RoadTrafficAct:    {Code: "Road_Traffic_Act", Label: "도로교통법", EnglishLabel: "Road Traffic Act"},
	LaborStandardsAct: {Code: "Labor_Standards_Act", Label: "근로기준법", EnglishLabel: "Labor Standards Act"},
	PoliceDutiesAct:   {Code: "Police_Duties_Act", Label: "경찰관직무집행법", EnglishLabel: "Police Duties Act"},
}

// Categories returns every law category in display order.
func Categories() []LawCategory {
	out := make([]LawCategory, len(categories))
	for i := range categories {
		out[i] = LawCategory(i)
	}
	return out
}

// Valid reports whether c is one of the known categories.
func (c LawCategory) Valid() bool {
	return c >= 0 && int(c) < len(categories)
}

// Info returns the registry entry for c.
// Unknown categories return an empty CategoryInfo.
func (c LawCategory) Info() CategoryInfo {
	if !c.Valid() {
		return CategoryInfo{}
	}
	return categories[c]
}

// Code returns the wire code sent to the answering service.
func (c LawCategory) Code() string {
	return c.Info().Code
}

// Label returns the Korean display label.
func (c LawCategory) Label() string {
	return c.Info().Label
}

// LocalizedLabel returns the label for the given locale ("en" or anything else for Korean).
func (c LawCategory) LocalizedLabel(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return c.Info().EnglishLabel
	}
	return c.Info().Label
}

// String implements fmt.Stringer using the wire code.
func (c LawCategory) String() string {
	if !c.Valid() {
		return fmt.Sprintf("LawCategory(%d)", int(c))
	}
	return c.Code()
}

// Next returns the category after c, wrapping around.
func (c LawCategory) Next() LawCategory {
	return LawCategory((int(c) + 1) % len(categories))
}

// Prev returns the category before c, wrapping around.
func (c LawCategory) Prev() LawCategory {
	return LawCategory((int(c) + len(categories) - 1) % len(categories))
}

// =============================================================================
// LOOKUP
// =============================================================================

// ParseLawCategory resolves a wire code ("Civil_Law"), an English name
// ("civil law", "CivilLaw") or a Korean label ("민법") to a category.
func ParseLawCategory(s string) (LawCategory, error) {
	norm := normalizeCategoryKey(s)
	if norm == "" {
		return 0, fmt.Errorf("empty law category")
	}
	for i, info := range categories {
		if norm == normalizeCategoryKey(info.Code) ||
			norm == normalizeCategoryKey(info.EnglishLabel) ||
			strings.TrimSpace(s) == info.Label {
			return LawCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown law category %q", s)
}

// normalizeCategoryKey lowercases and strips separators so "Civil_Law",
// "civil law" and "CivilLaw" compare equal.
func normalizeCategoryKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler using the wire code.
func (c LawCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid law category %d", int(c))
	}
	return []byte(c.Code()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *LawCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseLawCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
