package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
	"github.com/custodia-labs/vigil/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// promptSpec is a built-in prompt and the number of %s verbs a user
// override must keep.
type promptSpec struct {
	text  string
	verbs int
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var builtinPrompts = map[string]promptSpec{
	driven.PromptSystem: {verbs: 0, text: `You are a secure code reviewer. You judge code against the secure coding
guidance you are given and never invent vulnerabilities the code does not show.`},

	driven.PromptContextualize: {verbs: 1, text: `You are a contextual analyzer. Given this code snippet, provide a concise description of what it does, its intended use, and any relevant environment or dependencies:

%s

Focus on clarity and precision, as this will guide future recommendations.`},

	driven.PromptGenerate: {verbs: 3, text: `You are a secure code reviewer. Based on the following:
- Context: %s
- Secure coding guidance:
%s
- Code snippet:
%s

Rate the security severity of the code snippet and provide actionable, prioritized recommendations to remediate any issues, most important first.

Respond with a JSON object of exactly this shape:
{"severity": "None" | "Low" | "Medium" | "High" | "Critical", "recommendations": ["..."]}

Use "None" with an empty list when the code has no security issue.`},
}

const promptReadme = `# Vigil Prompts

Each file holds one prompt template used while analyzing a chunk.

- system.txt         sent with every request
- contextualize.txt  summarises what a chunk does; one %s for the code
- generate.txt       grades the chunk; three %s for context, guidance, code

Edit a file to customise the review. A file with the wrong number of %s
placeholders is ignored and the built-in prompt is used instead. The
generate prompt must keep asking for the JSON shape of the default file;
responses that do not match it are reported as Unknown.
`

// PromptStore serves prompt templates from ~/.vigil/prompts, seeding the
// directory with the built-in prompts on first use. Templates are cached
// until Reload.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.vigil/prompts when
// dir is empty. No files are touched until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".vigil", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named template. A missing, unreadable or malformed
// override falls back to the built-in prompt.
func (s *PromptStore) Load(name string) (string, error) {
	spec, ok := builtinPrompts[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		return spec.text, nil
	}

	s.mu.RLock()
	cached, hit := s.cache[name]
	s.mu.RUnlock()
	if hit {
		return cached, nil
	}

	text := spec.text
	override, err := s.read(name)
	switch {
	case err != nil:
		logger.Debug("prompt %s: %v, using built-in", name, err)
	case strings.Count(override, "%s") != spec.verbs:
		logger.Warn("prompt %s needs %d %%s placeholders, using built-in", name, spec.verbs)
	default:
		text = override
	}

	s.mu.Lock()
	if prior, raced := s.cache[name]; raced {
		text = prior
	} else {
		s.cache[name] = text
	}
	s.mu.Unlock()
	return text, nil
}

// Reload drops cached templates so edits are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// seed creates the directory, the default templates and the README.
// Existing files are left alone.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Warn("%v", s.seedErr)
		return
	}

	files := map[string]string{filepath.Join(s.dir, "README.md"): promptReadme}
	for name, spec := range builtinPrompts {
		files[s.path(name)] = spec.text
	}
	for path, content := range files {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.seedErr = fmt.Errorf("write %s: %w", path, err)
			logger.Warn("%v", s.seedErr)
			return
		}
	}
}
