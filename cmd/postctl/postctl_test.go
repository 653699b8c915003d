package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodPost = `---
title: Hello
tags: [a, b]
---
Body text.
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRun_Parse(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "post.md", goodPost)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"parse", p}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var got struct {
		File     string         `json:"file"`
		Metadata map[string]any `json:"metadata"`
		Body     string         `json:"body"`
		Format   string         `json:"format"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, p, got.File)
	assert.Equal(t, "Hello", got.Metadata["title"])
	assert.Equal(t, []any{"a", "b"}, got.Metadata["tags"])
	assert.Equal(t, "Body text.\n", got.Body)
	assert.Equal(t, "yaml", got.Format)
}

func TestRun_ParseBodyOnly(t *testing.T) {
	p := writeFile(t, t.TempDir(), "post.md", goodPost)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"parse", "--body", p}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Body text.\n", stdout.String())
}

func TestRun_ParseMalformed(t *testing.T) {
	p := writeFile(t, t.TempDir(), "bad.md", "---\ntitle: x\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"parse", p}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "malformed front matter header")
}

func TestRun_Check(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025-01-01-good.md", goodPost)
	writeFile(t, dir, "nested/2025-01-02-bad.md", "---\ntitle: x\nbody\n")
	writeFile(t, dir, "notes.txt", "---\n")
	writeFile(t, dir, ".git/ignored.md", "---\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"check", dir}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), filepath.Join(dir, "nested", "2025-01-02-bad.md")+":3:")
	assert.Contains(t, stdout.String(), "2 posts, 1 malformed")
}

func TestRun_CheckClean(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2025-01-01-good.md", goodPost)
	writeFile(t, dir, "plain.md", "no header here\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"check", "-q", dir}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())
}

func TestRun_Build(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "_posts/2025-01-30-hello.md", goodPost)
	out := filepath.Join(t.TempDir(), "site")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"build", "--repo", repo, "--out", out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "built 1 posts")
	assert.FileExists(t, filepath.Join(out, "2025", "01", "30", "hello", "index.html"))
	assert.FileExists(t, filepath.Join(out, "index.html"))
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"nope"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "nope"`)

	stdout.Reset()
	assert.Equal(t, 0, run(context.Background(), []string{"check", "--help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Usage: postctl check DIR")
}
