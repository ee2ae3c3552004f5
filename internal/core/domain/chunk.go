package domain

// Chunk is a contiguous slice of extracted text plus provenance.
// Chunks only live for the duration of one job.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// ChunkMetadata carries provenance through embedding into the point payload.
// Zero values mean "not set" and are left out of payloads.
type ChunkMetadata struct {
	// DocID is the owning profile name.
	DocID string

	// DocPath is the file the chunk came from.
	DocPath string

	Section  string
	Title    string
	Source   string
	SourceID string

	// Path is the stable key used for point identity: a JSON pointer or
	// "{file}#p{page}".
	Path string

	PageStart int
	PageEnd   int
	Hash      string
}

// Payload returns the optional metadata fields as payload entries.
func (m ChunkMetadata) Payload() map[string]any {
	out := make(map[string]any, 7)
	setString := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	setString("section", m.Section)
	setString("title", m.Title)
	setString("source", m.Source)
	setString("source_id", m.SourceID)
	setString("path", m.Path)
	if m.PageStart > 0 {
		out["page_start"] = m.PageStart
	}
	if m.PageEnd > 0 {
		out["page_end"] = m.PageEnd
	}
	return out
}

// DocumentProgress is reported by the loader registry after each document.
type DocumentProgress struct {
	Path        string
	FilesDone   int
	PagesDone   int
	ChunksSoFar int
}

// CollectStats are the preflight totals of a profile.
type CollectStats struct {
	FilesTotal int
	PagesTotal int
}
