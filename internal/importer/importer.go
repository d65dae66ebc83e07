// Package importer loads the transcript queue from a JSONL export produced by
// the transcription pipeline. Each line is an independent JSON object; lines
// that fail to parse are logged and skipped rather than failing the batch.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"listencheck.org/internal/ids"
	"listencheck.org/internal/obs"
	"listencheck.org/internal/review"
	"listencheck.org/internal/storage"
)

// line is the shape of one JSONL record. The pipeline has exported under two
// field naming schemes over time; both are accepted.
type line struct {
	Filename      string `json:"filename"`
	Path          string `json:"path"`
	Transcription string `json:"transcription"`
	OriginalText  string `json:"originalText"`
}

func (l line) filename() string {
	if l.Filename != "" {
		return path.Base(l.Filename)
	}
	if l.Path != "" {
		return path.Base(l.Path)
	}
	return ""
}

func (l line) text() string {
	if l.Transcription != "" {
		return l.Transcription
	}
	return l.OriginalText
}

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int
}

// Importer rebuilds the transcript table from the configured JSONL object.
type Importer struct {
	store    review.TranscriptStore
	resolver storage.Resolver

	// jsonlKey is the storage key of the export; basePath prefixes each
	// audio filename to form the clip's storage key.
	jsonlKey string
	basePath string
}

func New(store review.TranscriptStore, resolver storage.Resolver, jsonlKey, basePath string) *Importer {
	return &Importer{store: store, resolver: resolver, jsonlKey: jsonlKey, basePath: basePath}
}

// Run reads the JSONL export, parses every line and replaces the entire
// transcript table with the parsed set. The replacement is destructive: any
// review progress on the previous set is discarded.
func (im *Importer) Run(ctx context.Context) (*Result, error) {
	content, ok, err := im.resolver.TextContent(ctx, im.jsonlKey)
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", im.jsonlKey, err)
	}
	if !ok {
		return nil, fmt.Errorf("importer: %s not found", im.jsonlKey)
	}

	ts, skipped := im.parse(content)
	if len(ts) == 0 {
		return nil, fmt.Errorf("importer: no valid records in %s", im.jsonlKey)
	}

	n, err := im.store.ReplaceAll(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("importer: replace transcripts: %w", err)
	}
	return &Result{Imported: n, Skipped: skipped}, nil
}

func (im *Importer) parse(content string) ([]*review.Transcript, int) {
	var out []*review.Transcript
	skipped := 0

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var l line
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			obs.Logger().Warn("skipping malformed import line", "line", lineNo, "err", err)
			skipped++
			continue
		}
		name := l.filename()
		text := l.text()
		if name == "" || text == "" {
			obs.Logger().Warn("skipping import line without filename or text", "line", lineNo)
			skipped++
			continue
		}
		out = append(out, &review.Transcript{
			ID:           ids.New(),
			S3AudioKey:   im.basePath + "/" + name,
			OriginalText: text,
			Status:       review.StatusPending,
		})
	}
	return out, skipped
}
