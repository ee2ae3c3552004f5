// Package pdf loads PDF documents page by page through the poppler
// command line tools (pdfinfo and pdftotext).
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/loaders/pages"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/postprocessors/chunker"
)

// Ensure Loader implements the interfaces.
var (
	_ driven.DocumentLoader = (*Loader)(nil)
	_ driven.PageCounter    = (*Loader)(nil)
)

const (
	pdftotextBin = "pdftotext"
	pdfinfoBin   = "pdfinfo"
	titleDefault = "pdf"

	// minPageChars is the cleaned length below which a page is flagged as
	// a candidate for layout-aware re-extraction.
	minPageChars = 60
)

// ErrToolNotFound is returned when the poppler tools are not installed.
var ErrToolNotFound = errors.New("pdftotext/pdfinfo not found in PATH (install poppler-utils)")

// Loader handles PDF documents.
type Loader struct {
	runner driven.CommandRunner
	// lookPath is nil for injected runners so tests never touch PATH.
	lookPath func(string) (string, error)
}

// New creates a PDF loader that shells out to poppler.
func New() *Loader {
	return &Loader{runner: ExecRunner{}, lookPath: exec.LookPath}
}

// NewWithRunner creates a PDF loader with a custom command runner.
func NewWithRunner(runner driven.CommandRunner) *Loader {
	return &Loader{runner: runner}
}

// Type returns the document type tag.
func (l *Loader) Type() domain.DocumentType {
	return domain.DocumentTypePDF
}

func (l *Loader) checkTools() error {
	if l.lookPath == nil {
		return nil
	}
	for _, bin := range []string{pdftotextBin, pdfinfoBin} {
		if _, err := l.lookPath(bin); err != nil {
			return ErrToolNotFound
		}
	}
	return nil
}

// PageCount returns the page count reported by pdfinfo.
func (l *Loader) PageCount(ctx context.Context, path string) (int, error) {
	if err := l.checkTools(); err != nil {
		return 0, err
	}
	out, err := l.runner.Run(ctx, pdfinfoBin, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", path, err)
	}
	return parsePageCount(out)
}

func parsePageCount(out []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("%w: bad page count %q", domain.ErrInvalidInput, val)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: pdfinfo output has no page count", domain.ErrInvalidInput)
}

// Load extracts the selected pages and chunks each one.
//
// Pages that look like code or tables keep their whitespace and are cut
// with a character window. Everything else is collapsed and chunked on
// sentence boundaries.
func (l *Loader) Load(ctx context.Context, path string, opts driven.LoadOptions) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total, err := l.PageCount(ctx, path)
	if err != nil {
		return nil, err
	}
	selected, err := pages.Compute(opts.IncludePages, opts.ExcludePages, total)
	if err != nil {
		return nil, err
	}
	selected = pages.Within(selected, total)
	if len(selected) == 0 {
		return nil, nil
	}

	texts, err := l.extract(ctx, path, selected[0], selected[len(selected)-1])
	if err != nil {
		return nil, err
	}

	source := filepath.Base(path)
	var chunks []domain.Chunk
	for _, page := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := texts[page]
		preserve := looksLikeCode(raw) || looksLikeTable(raw)
		text := cleanText(raw, preserve)
		if text == "" {
			continue
		}
		if len([]rune(text)) < minPageChars {
			logger.Debug("pdf.page.sparse path=%s page=%d chars=%d needs_layout=true", path, page, len([]rune(text)))
		}

		var pieces []string
		if preserve {
			pieces = chunker.Window(text, opts.Chunking.Size, opts.Chunking.Overlap)
		} else {
			pieces = chunker.Sentences(text, opts.Chunking.Size, opts.Chunking.Overlap)
		}

		for idx, piece := range pieces {
			hash := chunkHash(opts.DocID, page, piece)
			chunks = append(chunks, domain.Chunk{
				Text: piece,
				Metadata: domain.ChunkMetadata{
					DocID:     opts.DocID,
					DocPath:   path,
					Section:   fmt.Sprintf("p%d", page),
					Title:     titleDefault,
					Source:    source,
					SourceID:  fmt.Sprintf("%s:%d:%d:%s", opts.DocID, page, idx, hash[:8]),
					Path:      fmt.Sprintf("%s#p%d", source, page),
					PageStart: page,
					PageEnd:   page,
					Hash:      hash,
				},
			})
		}
	}
	return chunks, nil
}

// extract runs pdftotext once over [first, last] and splits the output on
// form feeds. The result is keyed by 1-based page number.
func (l *Loader) extract(ctx context.Context, path string, first, last int) (map[int]string, error) {
	out, err := l.runner.Run(ctx, pdftotextBin,
		"-enc", "UTF-8",
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
		path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftotext %s: %w", path, err)
	}

	texts := make(map[int]string, last-first+1)
	for i, page := range strings.Split(string(out), "\f") {
		if first+i > last {
			break
		}
		texts[first+i] = page
	}
	return texts, nil
}

func chunkHash(docID string, page int, text string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s%d-%d%s", docID, page, page, text)))
	return hex.EncodeToString(sum[:])
}
