// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/session"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/storage"
)

var fixedNow = time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)

func successState() session.State {
	s := session.NewState(model.CivilLaw)
	s.Status = session.StatusSuccess
	s.PendingQuestion = "전세 보증금을 못 받으면?"
	s.LastAnswer = "임차권등기명령을 신청할 수 있습니다."
	s.LastElapsed = "1.25초"
	s.LastUsage = model.TokenUsage{QueryTokens: 6, PromptTokens: 140, ResponseTokens: 60, TotalTokens: 200}
	s.History = []model.ChatTurn{
		{Question: "계약 해지 사유는?", Answer: "민법 제544조..."},
		{Question: "전세 보증금을 못 받으면?", Answer: "임차권등기명령을 신청할 수 있습니다."},
	}
	return s
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestFromState_LastEntryCarriesMetadata(t *testing.T) {
	doc := FromState("sess-1", fixedNow, successState(), "ko")

	require.Len(t, doc.Entries, 2)
	assert.Equal(t, "계약 해지 사유는?", doc.Title)
	assert.Nil(t, doc.Entries[0].Tokens)

	last := doc.Entries[1]
	require.NotNil(t, last.Category)
	assert.Equal(t, model.CivilLaw, *last.Category)
	assert.Equal(t, 200, last.Tokens.TotalTokens)
	assert.Equal(t, "1.25초", last.Elapsed)
	assert.Equal(t, 200, doc.TotalTokens())
	assert.Len(t, doc.Turns(), 2)
}

func TestFromState_ErrorStateHasNoMetadata(t *testing.T) {
	s := successState()
	s.Status = session.StatusError
	doc := FromState("sess-1", fixedNow, s, "ko")
	assert.Nil(t, doc.Entries[1].Tokens)
	assert.Zero(t, doc.TotalTokens())
}

func TestFromState_EmptyHistoryUsesCategoryTitle(t *testing.T) {
	doc := FromState("sess-1", fixedNow, session.NewState(model.CriminalLaw), "en")
	assert.Empty(t, doc.Entries)
	assert.Equal(t, model.CriminalLaw.LocalizedLabel("en"), doc.Title)
}

func TestFromTranscripts(t *testing.T) {
	ts := []storage.Transcript{
		{SessionID: "s", Category: model.PoliceDutiesAct, Question: "불심검문?", Answer: "제3조", CreatedAt: fixedNow,
			Usage: model.TokenUsage{TotalTokens: 50}, Elapsed: "0.90초"},
		{SessionID: "s", Category: model.CriminalLaw, Question: "체포?", Answer: "제200조의2", CreatedAt: fixedNow.Add(time.Minute),
			Usage: model.TokenUsage{TotalTokens: 70}},
	}
	doc := FromTranscripts("s", ts, "ko")

	assert.Equal(t, fixedNow, doc.CreatedAt)
	assert.Equal(t, "불심검문?", doc.Title)
	assert.Equal(t, 120, doc.TotalTokens())
	assert.Equal(t, model.CriminalLaw, *doc.Entries[1].Category)
	assert.Equal(t, fixedNow.Add(time.Minute), *doc.Entries[1].AskedAt)
}

// =============================================================================
// MARKDOWN TESTS
// =============================================================================

func TestMarkdownExporter_Frontmatter(t *testing.T) {
	e := NewMarkdownExporter(nil)
	e.now = func() time.Time { return fixedNow }

	out, err := e.Export(FromState("sess-1", fixedNow, successState(), "ko"))
	require.NoError(t, err)
	text := string(out)

	require.True(t, strings.HasPrefix(text, "---\n"))
	end := strings.Index(text[4:], "---\n")
	require.Greater(t, end, 0)

	var fm frontmatter
	require.NoError(t, yaml.Unmarshal([]byte(text[4:4+end]), &fm))
	assert.Equal(t, "계약 해지 사유는?", fm.Title)
	assert.Equal(t, "sess-1", fm.Session)
	assert.Equal(t, 2, fm.Questions)
	assert.Equal(t, 200, fm.Tokens)
	assert.Equal(t, []string{"Civil_Law"}, fm.Laws)
	assert.Equal(t, "kiseha", fm.Generator)

	assert.Contains(t, text, "# 법률 상담 기록")
	assert.Contains(t, text, "> 전세 보증금을 못 받으면?")
	assert.Contains(t, text, "소요 시간: 1.25초")
	assert.Contains(t, text, "토큰: 6/140/60 (200)")
}

func TestMarkdownExporter_YAMLInjectionIsQuoted(t *testing.T) {
	s := successState()
	s.History[0].Question = "title\nInjection: malicious"

	out, err := NewMarkdownExporter(nil).Export(FromState("s", fixedNow, s, "en"))
	require.NoError(t, err)

	text := string(out)
	end := strings.Index(text[4:], "---\n")
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(text[4:4+end]), &raw))
	assert.NotContains(t, raw, "Injection")
	assert.Equal(t, "title\nInjection: malicious", raw["title"])
	assert.Contains(t, text, "# Legal Q&A session")
}

func TestMarkdownExporter_WithoutMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	out, err := NewMarkdownExporter(opts).Export(FromState("s", fixedNow, successState(), "ko"))
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(out), "---\n"))
	assert.NotContains(t, string(out), "<sub>")
}

func TestExporters_RejectEmpty(t *testing.T) {
	empty := FromState("s", fixedNow, session.NewState(model.CriminalLaw), "ko")
	for _, e := range []Exporter{NewMarkdownExporter(nil), NewHTMLExporter(nil)} {
		_, err := e.Export(empty)
		assert.True(t, errors.Is(err, ErrEmptyDocument))
		_, err = e.Export(nil)
		assert.Error(t, err)
	}
}

// =============================================================================
// JSON / HTML TESTS
// =============================================================================

func TestJSONExporter_RoundTrip(t *testing.T) {
	doc := FromState("sess-1", fixedNow, successState(), "ko")
	out, err := NewJSONExporter(nil).Export(doc)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, doc.SessionID, back.SessionID)
	require.Len(t, back.Entries, 2)
	assert.Equal(t, model.CivilLaw, *back.Entries[1].Category)
	assert.Contains(t, string(out), `"law": "Civil_Law"`)
}

func TestHTMLExporter_EscapesContent(t *testing.T) {
	s := successState()
	s.History[0].Answer = "<script>alert('xss')</script>"

	e := NewHTMLExporter(&Options{IncludeMetadata: true, Theme: "light"})
	out, err := e.Export(FromState("s", fixedNow, s, "en"))
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "<script>alert")
	assert.Contains(t, text, "&lt;script&gt;")
	assert.Contains(t, text, `<html lang="en">`)
	assert.Contains(t, text, `class="light-theme"`)
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"md": ".md", "": ".md", "JSON": ".json", "html": ".html"} {
		e, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, e.FileExtension())
	}
	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestExportFormat_WritesFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "out")

	path, err := ExportFormat(FromState("s", fixedNow, successState(), "ko"), "markdown", opts)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".md"))
	assert.Contains(t, filepath.Base(path), "kiseha_계약_해지_사유는-_")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "민법 제544조")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "session", sanitizeFilename("   "))
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, 40, len([]rune(sanitizeFilename(strings.Repeat("가", 60)))))
}
