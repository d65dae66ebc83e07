package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalURLs(t *testing.T) {
	l := NewLocal("./public/audio/transcripts")

	url, err := l.AudioURL(context.Background(), "clip-001.wav")
	require.NoError(t, err)
	assert.Equal(t, "public/audio/transcripts/clip-001.wav", url)

	url, err = l.TextURL(context.Background(), "/clip-001.txt")
	require.NoError(t, err)
	assert.Equal(t, "public/audio/transcripts/clip-001.txt", url)
}

func TestLocalTextContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.jsonl"), []byte(`{"filename":"a.wav"}`), 0o644))

	l := NewLocal(dir)
	content, ok, err := l.TextContent(context.Background(), "notes.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"filename":"a.wav"}`, content)
}

func TestLocalTextContentMissingIsNotAnError(t *testing.T) {
	l := NewLocal(t.TempDir())
	content, ok, err := l.TextContent(context.Background(), "does-not-exist.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, content)
}

func TestLocalTextContentNormalizesKnownPrefixes(t *testing.T) {
	// Base path already ends in the public prefix the importer bakes into
	// keys; the duplicated segment must collapse.
	root := t.TempDir()
	dir := filepath.Join(root, "audio", "transcripts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transcriptions.jsonl"), []byte("x"), 0o644))

	l := NewLocal(filepath.ToSlash(dir))
	content, ok, err := l.TextContent(context.Background(), "audio/transcripts/transcriptions.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", content)
}
