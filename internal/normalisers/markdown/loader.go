package markdown

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/vigil/internal/core/domain"
)

// extensions recognised as guidance documents.
var extensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// LoadDocuments reads every markdown file under dir and returns the
// documents keyed by title. Hidden files and directories are skipped.
// Two files resolving to the same title are rejected.
func LoadDocuments(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("guidance directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && extensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	docs := make(map[string]string, len(paths))
	origin := make(map[string]string, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		title := Title(content, path)
		if prev, dup := origin[title]; dup {
			return nil, fmt.Errorf("%w: %s and %s share the title %q", domain.ErrInvalidInput, prev, path, title)
		}
		origin[title] = path
		docs[title] = content
	}
	return docs, nil
}
