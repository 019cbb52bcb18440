package chapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Chapter is one source text.
type Chapter struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Text   string `json:"-"`
}

// HashValues makes chunk hashes depend on the chapter content only.
func (c Chapter) HashValues() []string {
	return []string{c.Title, c.Text}
}

// LoadDir reads every *.txt file of dir, in name order, as a chapter.
// The first non-blank line is the title.
func LoadDir(dir string) ([]Chapter, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	sort.Strings(paths)

	chapters := make([]Chapter, 0, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read chapter %s: %w", path, err)
		}
		text := string(data)
		chapters = append(chapters, Chapter{
			Number: i + 1,
			Title:  title(text, path),
			Path:   path,
			Text:   text,
		})
	}
	return chapters, nil
}

func title(text, path string) string {
	for line := range strings.Lines(text) {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
