package domain

// GuidanceSection is one heading-delimited portion of a guidance document.
type GuidanceSection struct {
	// ID is deterministic for a given document title, ordinal and heading.
	ID string `json:"id"`

	// DocumentTitle identifies the originating document. Re-ingesting a
	// document with the same title replaces all of its sections.
	DocumentTitle string `json:"document_title"`

	// Heading is the section heading, e.g. "Secure Example".
	Heading string `json:"heading"`

	// Category is the vulnerability class the document covers.
	Category string `json:"category,omitempty"`

	// Text is the section body.
	Text string `json:"text"`

	// Embedding is the vector representation used for similarity.
	Embedding []float32 `json:"-"`
}

// ScoredSection is a query hit.
type ScoredSection struct {
	Section GuidanceSection

	// Score is the cosine similarity to the query.
	Score float64
}

// GuidanceGeneration is an immutable snapshot of the guidance index.
type GuidanceGeneration struct {
	// ID increases by one on every successful rebuild.
	ID int64

	// Titles is the document order; sections follow it.
	Titles []string

	// Sections holds every section in insertion order.
	Sections []GuidanceSection

	// EmbeddingModel and EmbeddingDimensions identify the embedder that
	// produced every section vector.
	EmbeddingModel      string
	EmbeddingDimensions int
}

// EmbeddedBy reports whether the section vectors came from an embedder
// with the given model and dimensions.
func (g *GuidanceGeneration) EmbeddedBy(model string, dimensions int) bool {
	return g.EmbeddingModel == model && g.EmbeddingDimensions == dimensions
}

// SectionIDs returns the IDs of the given hits in order.
func SectionIDs(hits []ScoredSection) []string {
	ids := make([]string, len(hits))
	for i := range hits {
		ids[i] = hits[i].Section.ID
	}
	return ids
}
