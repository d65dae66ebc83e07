package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local serves keys from a directory shipped alongside the service. URLs are
// site-relative paths under the configured base.
type Local struct {
	base string
}

// NewLocal builds a Local resolver rooted at basePath
// (e.g. "./public/audio/transcripts").
func NewLocal(basePath string) *Local {
	return &Local{base: basePath}
}

func (l *Local) AudioURL(ctx context.Context, key string) (string, error) {
	return l.urlFor(key), nil
}

func (l *Local) TextURL(ctx context.Context, key string) (string, error) {
	return l.urlFor(key), nil
}

func (l *Local) urlFor(key string) string {
	base := strings.TrimPrefix(l.base, "./")
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	return base + key
}

// TextContent reads the key from the local filesystem. Keys produced by the
// importer carry the public URL prefix (e.g. "audio/transcripts/f.jsonl")
// while the base path already ends in that prefix, so a few known layouts
// are tried before giving up.
func (l *Local) TextContent(ctx context.Context, key string) (string, bool, error) {
	for _, candidate := range l.candidates(key) {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, err
		}
	}
	return "", false, nil
}

func (l *Local) candidates(key string) []string {
	key = strings.TrimPrefix(key, "/")
	root := filepath.FromSlash(strings.TrimPrefix(l.base, "./"))

	out := []string{filepath.Join(root, filepath.FromSlash(key))}

	// Collapse a duplicated prefix: base ".../audio/transcripts" + key
	// "audio/transcripts/foo" resolves to ".../audio/transcripts/foo".
	cleanBase := path.Clean(strings.TrimPrefix(filepath.ToSlash(l.base), "./"))
	for dir := path.Dir(key); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if strings.HasSuffix(cleanBase, dir) {
			rest := strings.TrimPrefix(key, dir+"/")
			out = append(out, filepath.Join(root, filepath.FromSlash(rest)))
			break
		}
	}

	// Keys exported with the site prefix.
	if trimmed := strings.TrimPrefix(key, "public/"); trimmed != key {
		out = append(out, filepath.Join(root, filepath.FromSlash(trimmed)))
	}
	return out
}
