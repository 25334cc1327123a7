package domain

// RetrievableUnit is one text body stored in a collection for similarity search.
// IDs are unique within a collection, not globally.
type RetrievableUnit struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}
