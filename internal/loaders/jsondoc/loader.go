// Package jsondoc loads arbitrary JSON documents as flat, key-annotated
// text chunks without assuming any schema.
package jsondoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/postprocessors/chunker"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

const section = "json"

var (
	multiSpace = regexp.MustCompile(`\s+`)
	digitsOnly = regexp.MustCompile(`^\d+$`)
	titleCaser = cases.Title(language.Und)
)

// Loader handles JSON documents.
type Loader struct{}

// New creates a JSON loader.
func New() *Loader {
	return &Loader{}
}

// Type returns the document type tag.
func (l *Loader) Type() domain.DocumentType {
	return domain.DocumentTypeJSON
}

// Load walks the document and emits one or more chunks per leaf.
//
// Strings are whitespace-normalised, prefixed with their key context
// ("Experience > Company: ") and chunked sentence-aware. Numbers and
// booleans become a single chunk. Nulls are skipped.
func (l *Loader) Load(ctx context.Context, path string, opts driven.LoadOptions) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidInput, path, err)
	}

	source := filepath.Base(path)
	var chunks []domain.Chunk
	for _, lf := range flatten(root, "", nil) {
		meta := domain.ChunkMetadata{
			DocID:    opts.DocID,
			DocPath:  path,
			Section:  section,
			Title:    title(lf.path),
			Source:   source,
			SourceID: lf.path,
			Path:     lf.path,
		}
		prefix := keyPrefix(lf.path)

		switch lf.value.kind {
		case kindNull:
			continue
		case kindNumber, kindBool:
			chunks = append(chunks, domain.Chunk{Text: prefix + lf.value.String(), Metadata: meta})
		default:
			text := normalize(lf.value.String())
			if text == "" {
				continue
			}
			for _, s := range chunker.Sentences(prefix+text, opts.Chunking.Size, opts.Chunking.Overlap) {
				chunks = append(chunks, domain.Chunk{Text: s, Metadata: meta})
			}
		}
	}
	return chunks, nil
}

func normalize(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// title returns the last pointer segment, or "/" for the root.
func title(path string) string {
	i := strings.LastIndex(path, "/")
	if last := path[i+1:]; last != "" {
		return last
	}
	return "/"
}

// keyPrefix turns "/experience/0/company_name" into
// "Experience > Company Name: ". Numeric segments are dropped.
func keyPrefix(path string) string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || digitsOnly.MatchString(seg) {
			continue
		}
		parts = append(parts, titleCaser.String(strings.ReplaceAll(seg, "_", " ")))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " > ") + ": "
}
