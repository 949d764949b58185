package domain

// ChunkKind classifies an analysis unit.
type ChunkKind string

// Available chunk kinds.
const (
	// ChunkKindFunction is a top-level function definition.
	ChunkKindFunction ChunkKind = "function"

	// ChunkKindClass is a top-level class definition.
	ChunkKindClass ChunkKind = "class"

	// ChunkKindGlobal is a run of consecutive non-definition statements.
	ChunkKindGlobal ChunkKind = "global"

	// ChunkKindRaw is a whole file analyzed without structure after a parse failure.
	ChunkKindRaw ChunkKind = "raw"
)

// IsDefinition returns true for function and class chunks.
func (k ChunkKind) IsDefinition() bool {
	return k == ChunkKindFunction || k == ChunkKindClass
}

// IsValid returns true if the kind is recognised.
func (k ChunkKind) IsValid() bool {
	switch k {
	case ChunkKindFunction, ChunkKindClass, ChunkKindGlobal, ChunkKindRaw:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ChunkKind) String() string {
	return string(k)
}

// Chunk is one contiguous analysis unit of a source file.
// Chunks of a file never overlap and are ordered by StartLine.
type Chunk struct {
	// ID is deterministic for a given span and text.
	ID string `json:"id"`

	// Kind is the structural classification.
	Kind ChunkKind `json:"kind"`

	// Name is the definition name; empty for most global blocks.
	Name string `json:"name,omitempty"`

	// Text is the exact source slice [StartLine, EndLine].
	Text string `json:"text"`

	// StartLine is the first line (1-based, inclusive).
	StartLine int `json:"start_line"`

	// EndLine is the last line (1-based, inclusive).
	EndLine int `json:"end_line"`

	// ParentID links to an enclosing chunk. Empty for top-level chunks.
	ParentID string `json:"parent_id,omitempty"`
}

// LineCount returns the number of lines the chunk spans.
func (c Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// Label returns a short human-readable description such as "function login".
func (c Chunk) Label() string {
	if c.Name == "" {
		return string(c.Kind)
	}
	return string(c.Kind) + " " + c.Name
}
