package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/qms-rag/internal/core/ports/driven"
	"github.com/custodia-labs/qms-rag/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
// A customised prompt that drops or adds a %s placeholder is ignored in
// favour of the default, since formatting it would corrupt the request.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptGrounding: `You are a regulatory compliance assistant specialised in ISO 13485:2016 and Quality Management Systems (QMS).

Rules:
- Answer strictly from the numbered context below. Never use outside knowledge.
- Never fabricate requirements, clause numbers, procedure ids or document names.
- If the context does not contain the answer, reply with exactly this sentence and nothing else:
%s
- Organise the answer in clear numbered sections, each a readable paragraph in full sentences.
- Do not include metadata, JSON or code formatting in the answer.`,

	driven.PromptQueryRewrite: `Rewrite this question about an ISO 13485 quality management system so it
matches the wording of the standard and of QMS procedures. Expand abbreviations
(CAPA, DHF, DMR, NC) and fix typos.
Return ONLY the rewritten question, nothing else.

Original: %s
Rewritten:`,
}

// placeholders is the number of %s verbs each known prompt must keep.
var placeholders = map[string]int{
	driven.PromptGrounding:    1,
	driven.PromptQueryRewrite: 1,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.qmsrag/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".qmsrag", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	if want, ok := placeholders[name]; ok && !validVerbs(prompt, want) {
		logger.Warn("prompt %q in %s must contain exactly %d %%s placeholder(s) and no other verbs "+
			"(write %%%% for a literal percent); using the default", name, s.promptDir, want)
		prompt = defaultPrompts[name]
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// validVerbs reports whether prompt holds exactly want bare %s verbs and no
// other fmt verb. %% is a literal percent and is allowed anywhere.
func validVerbs(prompt string, want int) bool {
	n := 0
	for i := 0; i < len(prompt); i++ {
		if prompt[i] != '%' {
			continue
		}
		if i+1 == len(prompt) {
			return false
		}
		switch prompt[i+1] {
		case '%':
		case 's':
			n++
		default:
			return false
		}
		i++
	}
	return n == want
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# qmsrag prompts

This directory contains the prompts sent to the language model.

## Files

- ` + "`grounding.txt`" + ` - System instruction that binds answers to the retrieved context
- ` + "`query_rewrite.txt`" + ` - Restates a question before vector retrieval (retrieval.rewrite_query)

## Customisation

Edit any file to customise model behaviour. Changes take effect on the next
command or after restarting the chat.

## Format Placeholders

Both prompts use one Go fmt placeholder:
- ` + "`%s`" + ` in grounding.txt - the fallback sentence the model must emit verbatim
- ` + "`%s`" + ` in query_rewrite.txt - the original question

A prompt with a missing or extra placeholder, or any other fmt verb, is ignored
and the built-in default is used. Write ` + "`%%`" + ` for a literal percent sign.
`
	return os.WriteFile(path, []byte(content), 0600)
}
