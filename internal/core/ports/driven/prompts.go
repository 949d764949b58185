package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptContextualize asks for a short summary of a chunk's purpose.
	// The template expects a %s placeholder for the code.
	PromptContextualize = "contextualize"

	// PromptGenerate asks for a JSON severity and remediation list.
	// The template expects %s placeholders for context, guidance and code, in that order.
	PromptGenerate = "generate"

	// PromptSystem is the system prompt for both steps. It has no placeholders.
	PromptSystem = "system"
)
