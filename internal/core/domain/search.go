package domain

// DefaultTopK is used when a search does not set TopK.
const DefaultTopK = 5

// SearchStatus is "ok" or "error". An error status carries no results.
type SearchStatus string

const (
	SearchOK    SearchStatus = "ok"
	SearchError SearchStatus = "error"
)

// SearchRequest is a semantic query against one profile's collection.
type SearchRequest struct {
	Profile string
	Query   string
	TopK    int

	// Filter is an AND of payload field equality conditions.
	Filter map[string]any
}

// SearchHit is one result of the read path.
type SearchHit struct {
	Score     float64 `json:"score"`
	Text      string  `json:"text,omitempty"`
	DocPath   string  `json:"doc_path,omitempty"`
	ChunkIdx  int     `json:"chunk_idx"`
	Source    string  `json:"source,omitempty"`
	PageStart int     `json:"page_start,omitempty"`
}

// SearchResponse wraps hits with a status.
type SearchResponse struct {
	Status  SearchStatus `json:"status"`
	Results []SearchHit  `json:"results"`
	// Reason explains an error status.
	Reason string `json:"reason,omitempty"`
}
