// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdesk/internal/model"
)

func sampleSession() *model.Session {
	s := model.NewSession()
	s.Append(model.NewUserMessage("What is in the Q4 report?"))
	s.Append(model.NewAssistantMessage("Revenue **grew**.\n\n```\ntotal 12%\n```", []model.Source{
		{Name: "q4.pdf", Path: "/docs/q4.pdf"},
		{Name: "notes"},
	}))
	return s
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{
		"md": ".md", "Markdown": ".md", "json": ".json", "HTML": ".html", "htm": ".html",
	} {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, exp.FileExtension(), format)
	}

	_, err := ForFormat("pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "md, json, html")
}

func TestValidation(t *testing.T) {
	for _, exp := range []Exporter{NewMarkdownExporter(nil), NewHTMLExporter(nil)} {
		_, err := exp.Export(nil)
		assert.ErrorIs(t, err, ErrNilSession)
		_, err = exp.Export(model.NewSession())
		assert.ErrorIs(t, err, ErrEmptySession)
	}

	_, err := NewJSONExporter().Export(nil)
	assert.ErrorIs(t, err, ErrNilSession)
	_, err = NewJSONExporter().Export(model.NewSession())
	assert.NoError(t, err)
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdown(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleSession())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: What is in the Q4 report?\n"))
	assert.Contains(t, md, "generator: ragdesk")
	assert.Contains(t, md, "# What is in the Q4 report?")
	assert.Contains(t, md, "**You** (")
	assert.Contains(t, md, "Revenue **grew**.")
	assert.Contains(t, md, "- [q4.pdf](/docs/q4.pdf)")
	assert.Contains(t, md, "- notes\n")
}

func TestMarkdown_WithoutMetadata(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{}).Export(sampleSession())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# What is in the Q4 report?"))
	assert.Contains(t, md, "**You**:\n\n")
	assert.NotContains(t, md, "generator:")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\"\n"`, escapeYAML("say \"hi\"\n"))
}

// =============================================================================
// JSON
// =============================================================================

func TestJSON_RoundTrip(t *testing.T) {
	s := sampleSession()
	out, err := NewJSONExporter().Export(s)
	require.NoError(t, err)

	var back model.Session
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, s.ID, back.ID)
	assert.Equal(t, s.Title, back.Title)
	require.Len(t, back.Messages, 2)
	assert.Equal(t, s.Messages[1].Sources, back.Messages[1].Sources)
}

// =============================================================================
// HTML
// =============================================================================

func TestHTML_RendersMarkdownAndSources(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleSession())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>What is in the Q4 report?</title>")
	assert.Contains(t, page, `class="dark-theme"`)
	assert.Contains(t, page, "<strong>grew</strong>")
	assert.Contains(t, page, "total 12%")
	assert.Contains(t, page, `<a href="file:///docs/q4.pdf">q4.pdf</a>`)
	assert.Contains(t, page, "<li>notes</li>")
}

func TestHTML_HighlightsFencedCode(t *testing.T) {
	s := model.NewSession()
	s.Append(model.NewUserMessage("show me"))
	s.Append(model.NewAssistantMessage("```go\nfunc main() {}\n```", nil))

	out, err := NewHTMLExporter(nil).Export(s)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<pre class="chroma">`)
	assert.Contains(t, page, `<span class="kd">func</span>`)
	assert.Contains(t, page, ".chroma")
}

func TestHTML_SanitizesContent(t *testing.T) {
	s := model.NewSession()
	s.Append(model.NewUserMessage(`<script>alert(1)</script> <b onclick="x()">hi</b>`))
	s.Title = `<img src=x onerror=alert(1)>`

	out, err := NewHTMLExporter(&Options{Theme: "light", IncludeMetadata: true}).Export(s)
	require.NoError(t, err)
	page := string(out)

	assert.NotContains(t, page, "<script>alert")
	assert.NotContains(t, page, "onclick")
	assert.NotContains(t, page, "<img src=x")
	assert.Contains(t, page, "&lt;img src=x onerror=alert(1)&gt;")
	assert.Contains(t, page, `class="light-theme"`)
}

// =============================================================================
// FILES
// =============================================================================

func TestFileName(t *testing.T) {
	s := model.NewSession()
	s.Title = `a/b: "c"?` + model.TitleEllipsis
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	assert.Equal(t, "chat_a-b-_-c--_20250304_050607.md", FileName(s, NewMarkdownExporter(nil), at))

	s.Title = ""
	assert.Equal(t, "chat_New_Chat_20250304_050607.json", FileName(s, NewJSONExporter(), at))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "chat", sanitizeFilename(""))
	assert.Equal(t, "x-y", sanitizeFilename("x\x01y"))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("世", 80))), 50)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ToFile(sampleSession(), NewHTMLExporter(nil), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "chat_What_is_in_the_Q4_report-_"))
	assert.Equal(t, ".html", filepath.Ext(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	_, err = ToFile(model.NewSession(), NewMarkdownExporter(nil), dir)
	assert.ErrorIs(t, err, ErrEmptySession)
}
