// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/backend/backendtest"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points every path the CLI touches at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("RAGDESK_HOME", home)
	t.Setenv("RAGDESK_STORAGE", "json")
	t.Setenv("RAGDESK_STYLE", "plain")
	t.Setenv("NO_COLOR", "1")
	return home
}

type result struct {
	out string
	err string
}

func run(t *testing.T, fake *backendtest.Fake, stdin string, args ...string) (result, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(Deps{
		In:      strings.NewReader(stdin),
		Out:     &out,
		Err:     &errOut,
		Backend: fake,
	})
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{out: out.String(), err: errOut.String()}, err
}

func answering(content string, sources ...model.Source) *backendtest.Fake {
	return &backendtest.Fake{Answer: backend.Answer{Text: content, Sources: sources}}
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsAnswerAndSources(t *testing.T) {
	isolate(t)
	fake := answering("Revenue grew twelve percent.", model.Source{Name: "q4.pdf", Path: "/docs/q4.pdf"})

	res, err := run(t, fake, "", "ask", "How", "did", "Q4", "go?")
	require.NoError(t, err)

	assert.Contains(t, res.out, "Revenue grew twelve percent.")
	assert.Contains(t, res.out, "Sources:")
	assert.Contains(t, res.out, "[1] q4.pdf")

	calls := fake.CallsTo("SendTextQuery")
	require.Len(t, calls, 1)
	assert.Equal(t, "How did Q4 go?", calls[0].Message)
}

func TestAsk_ReadsQuestionFromStdin(t *testing.T) {
	isolate(t)
	fake := answering("ok")

	_, err := run(t, fake, "  summarize the guide\n", "ask")
	require.NoError(t, err)

	calls := fake.CallsTo("SendTextQuery")
	require.Len(t, calls, 1)
	assert.Equal(t, "summarize the guide", calls[0].Message)
}

func TestAsk_NothingToAsk(t *testing.T) {
	isolate(t)
	fake := answering("unused")

	_, err := run(t, fake, "", "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to ask")
	assert.Empty(t, fake.Calls())
}

func TestAsk_JSON(t *testing.T) {
	isolate(t)
	fake := answering("forty-two", model.Source{Name: "guide.md"})

	res, err := run(t, fake, "", "--json", "ask", "meaning?")
	require.NoError(t, err)

	resp := decode(t, res.out)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "meaning?", data["question"])
	assert.Equal(t, "forty-two", data["answer"])
	assert.NotEmpty(t, data["session_id"])
	sources := data["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, "guide.md", sources[0].(map[string]any)["name"])
}

func TestAsk_BackendFailure(t *testing.T) {
	isolate(t)
	fake := &backendtest.Fake{Err: errors.New("connection refused")}

	res, err := run(t, fake, "", "ask", "hello")
	require.Error(t, err)
	assert.NotEmpty(t, res.err)
}

func TestAsk_AttachmentIsSentWithQuestion(t *testing.T) {
	isolate(t)
	fake := answering("transcribed")

	dir := t.TempDir()
	path := filepath.Join(dir, "memo.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF\x00\x00\x00\x00WAVEfmt "), 0o600))

	_, err := run(t, fake, "", "ask", "--attach", path)
	require.NoError(t, err)

	calls := fake.CallsTo("SendAudioQuery")
	require.Len(t, calls, 1)
	assert.Equal(t, "memo.wav", calls[0].FileName)
}

// =============================================================================
// SESSIONS
// =============================================================================

// askOnce stores one chat and returns its id.
func askOnce(t *testing.T, question string) string {
	t.Helper()
	res, err := run(t, answering("an answer"), "", "--json", "ask", question)
	require.NoError(t, err)
	data := decode(t, res.out)["data"].(map[string]any)
	return data["session_id"].(string)
}

func TestSessions_ListShowDelete(t *testing.T) {
	isolate(t)
	id := askOnce(t, "Where is the onboarding guide?")

	res, err := run(t, answering(""), "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, res.out, id)
	assert.Contains(t, res.out, "Where is the onboarding")

	res, err = run(t, answering(""), "", "sessions", "show", id)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Where is the onboarding guide?")
	assert.Contains(t, res.out, "an answer")

	res, err = run(t, answering(""), "", "sessions", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Deleted "+id)

	_, err = run(t, answering(""), "", "sessions", "show", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chat with id")
}

func TestSessions_ListFilterAndJSON(t *testing.T) {
	isolate(t)
	askOnce(t, "budget for 2025")
	keep := askOnce(t, "travel policy")

	res, err := run(t, answering(""), "", "--json", "sessions", "list", "TRAVEL")
	require.NoError(t, err)

	rows := decode(t, res.out)["data"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, keep, row["id"])
	assert.Equal(t, "travel policy", row["title"])
	assert.EqualValues(t, 2, row["messages"])
	assert.Equal(t, "an answer", row["last_message"])
}

func TestSessions_ExportJSONToFile(t *testing.T) {
	isolate(t)
	id := askOnce(t, "export me")
	out := filepath.Join(t.TempDir(), "chat.json")

	res, err := run(t, answering(""), "", "sessions", "export", id, "--format", "json", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Exported to")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var s model.Session
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, id, s.ID)
	assert.Len(t, s.Messages, 2)
}

func TestSessions_ExportUnknownFormat(t *testing.T) {
	isolate(t)
	id := askOnce(t, "export me")

	_, err := run(t, answering(""), "", "sessions", "export", id, "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestSessions_ExportHTMLIntoDirectory(t *testing.T) {
	isolate(t)
	id := askOnce(t, "html please")
	dir := t.TempDir()

	res, err := run(t, answering(""), "", "sessions", "export", id, "-f", "html", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, res.out, "Exported to "+filepath.Join(dir, "chat_html_please_"))

	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>html please</title>")
}

// =============================================================================
// DOCS
// =============================================================================

func TestDocs_List(t *testing.T) {
	isolate(t)
	fake := &backendtest.Fake{Documents: []model.Document{
		{Name: "handbook.pdf", Type: "pdf", Size: 2048},
	}}

	res, err := run(t, fake, "", "docs")
	require.NoError(t, err)
	assert.Contains(t, res.out, "1 indexed document(s)")
	assert.Contains(t, res.out, "handbook.pdf")
	assert.Contains(t, res.out, "2.0 kB")
}

func TestDocs_ListEmpty(t *testing.T) {
	isolate(t)

	res, err := run(t, &backendtest.Fake{}, "", "docs", "list")
	require.NoError(t, err)
	assert.Contains(t, res.out, "No documents indexed")
}

func TestDocs_OpenSendsAbsolutePath(t *testing.T) {
	isolate(t)
	fake := &backendtest.Fake{}
	path := filepath.Join(t.TempDir(), "report.pdf")

	_, err := run(t, fake, "", "docs", "open", path)
	require.NoError(t, err)

	calls := fake.CallsTo("OpenExternally")
	require.Len(t, calls, 1)
	assert.Equal(t, path, calls[0].Path)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_SetThenGet(t *testing.T) {
	home := isolate(t)

	res, err := run(t, &backendtest.Fake{}, "", "config", "set", "backend.url", "http://rag.internal:9000")
	require.NoError(t, err)
	assert.Contains(t, res.out, "backend.url = http://rag.internal:9000")

	res, err = run(t, &backendtest.Fake{}, "", "config", "get", "backend.url")
	require.NoError(t, err)
	assert.Equal(t, "http://rag.internal:9000\n", res.out)

	cfg, err := config.LoadFromPath(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://rag.internal:9000", cfg.Backend.URL)
	assert.Equal(t, config.Default().Stream.TokenIntervalMs, cfg.Stream.TokenIntervalMs)
}

func TestConfig_SetDoesNotPersistEnvironment(t *testing.T) {
	home := isolate(t)

	_, err := run(t, &backendtest.Fake{}, "", "config", "set", "stream.word_wrap", "100")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "word_wrap = 100")
	assert.NotContains(t, string(data), `driver = "json"`)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	isolate(t)

	_, err := run(t, &backendtest.Fake{}, "", "config", "set", "storage.driver", "postgres")
	require.Error(t, err)

	_, err = run(t, &backendtest.Fake{}, "", "config", "set", "backend.nope", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestConfig_InitOnce(t *testing.T) {
	home := isolate(t)

	res, err := run(t, &backendtest.Fake{}, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, res.out, filepath.Join(home, "config.toml"))

	_, err = run(t, &backendtest.Fake{}, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfig_ShowAndPath(t *testing.T) {
	home := isolate(t)

	res, err := run(t, &backendtest.Fake{}, "", "config", "show")
	require.NoError(t, err)
	for _, key := range config.Keys() {
		assert.Contains(t, res.out, key)
	}

	res, err = run(t, &backendtest.Fake{}, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml")+"\n", res.out)
}

// =============================================================================
// ROOT
// =============================================================================

func TestVersion(t *testing.T) {
	isolate(t)

	res, err := run(t, &backendtest.Fake{}, "", "version")
	require.NoError(t, err)
	assert.Contains(t, res.out, "ragdesk "+Version)

	res, err = run(t, &backendtest.Fake{}, "", "--json", "version")
	require.NoError(t, err)
	data := decode(t, res.out)["data"].(map[string]any)
	assert.Equal(t, Version, data["version"])
}

func TestRoot_NeedsTerminal(t *testing.T) {
	isolate(t)

	_, err := run(t, &backendtest.Fake{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a terminal")
}

func TestRoot_BackendFlagIsValidated(t *testing.T) {
	isolate(t)

	_, err := run(t, &backendtest.Fake{}, "", "--backend", "not a url", "docs")
	require.Error(t, err)
}
