package domain

// ProfileSummary is the listing view of a profile. Secrets are never included.
type ProfileSummary struct {
	Name       string `json:"name"`
	Documents  int    `json:"documents"`
	Primary    string `json:"primary,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
	Model      string `json:"model,omitempty"`
	Dim        int    `json:"dim,omitempty"`
	VectorDB   string `json:"vector_db,omitempty"`
	Collection string `json:"collection,omitempty"`

	// Error is set when the profile exists but does not load.
	Error string `json:"error,omitempty"`
}

// Summary returns the listing view of p.
func (p *Profile) Summary() ProfileSummary {
	primary := p.Embedding.PrimaryBackend()
	return ProfileSummary{
		Name:       p.Name,
		Documents:  len(p.Documents),
		Primary:    primary,
		Fallback:   p.Embedding.Fallback,
		Model:      p.Embedding.ModelFor(primary),
		Dim:        p.Embedding.Dim,
		VectorDB:   p.VectorStore.Kind,
		Collection: p.VectorStore.Collection,
	}
}
