// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/util"
)

// fileTimeLayout prefixes usage file names so they sort by start time.
const fileTimeLayout = "20060102-150405"

// =============================================================================
// USAGE STORAGE
// =============================================================================

// UsageStorage persists session usage as one JSON file per session.
type UsageStorage struct {
	dir string
}

// NewUsageStorage creates the storage directory if needed.
func NewUsageStorage(dir string) (*UsageStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("usage storage directory is empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &UsageStorage{dir: dir}, nil
}

// Dir returns the storage directory.
func (us *UsageStorage) Dir() string {
	return us.dir
}

func (us *UsageStorage) fileName(s *SessionUsage) string {
	return s.StartTime.Format(fileTimeLayout) + "_" + s.ID + ".json"
}

// Save persists a session usage record.
func (us *UsageStorage) Save(s *SessionUsage) error {
	if s == nil {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(us.dir, us.fileName(s)), data, 0600)
}

// Load retrieves a session by ID.
func (us *UsageStorage) Load(sessionID string) (*SessionUsage, error) {
	matches, err := filepath.Glob(filepath.Join(us.dir, "*_"+sessionID+".json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("usage for session %s: %w", sessionID, os.ErrNotExist)
	}
	return readSession(matches[0])
}

func readSession(path string) (*SessionUsage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s SessionUsage
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

type storedFile struct {
	name  string
	start time.Time
}

// files lists usage files with their parsed start time, oldest first.
func (us *UsageStorage) files() ([]storedFile, error) {
	entries, err := os.ReadDir(us.dir)
	if err != nil {
		return nil, err
	}

	var out []storedFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		start, err := time.ParseInLocation(fileTimeLayout, stamp, time.Local)
		if err != nil {
			continue // Skip invalid filenames
		}
		out = append(out, storedFile{name: name, start: start})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// LoadRange returns sessions started within [from, to].
func (us *UsageStorage) LoadRange(from, to time.Time) ([]*SessionUsage, error) {
	files, err := us.files()
	if err != nil {
		return nil, err
	}

	var sessions []*SessionUsage
	for _, f := range files {
		if f.start.Before(from.Truncate(time.Second)) || f.start.After(to) {
			continue
		}
		s, err := readSession(filepath.Join(us.dir, f.name))
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// DeleteBefore removes sessions started before the given time.
func (us *UsageStorage) DeleteBefore(before time.Time) (int, error) {
	files, err := us.files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if f.start.Before(before) {
			if err := os.Remove(filepath.Join(us.dir, f.name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Count returns the number of stored sessions.
func (us *UsageStorage) Count() (int, error) {
	files, err := us.files()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
