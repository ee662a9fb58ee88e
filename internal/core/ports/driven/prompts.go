package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return the built-in default
	// or an error when no default exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptGrounding is the system instruction that binds answers to the
	// retrieved context. The template expects one %s placeholder for the
	// fallback sentence.
	PromptGrounding = "grounding"

	// PromptQueryRewrite restates a question before vector retrieval.
	// The template expects a %s placeholder for the original question.
	PromptQueryRewrite = "query_rewrite"
)

// PromptStoreAware is implemented by services whose prompts can be customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	SetPromptStore(store PromptStore)
}
