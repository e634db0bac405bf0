package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names.
const (
	MarkdownFile = "DUST_REPORT.md"
	CSVFile      = "DUST_TOTALS.csv"
)

// WriteFiles renders r into dir and returns the written paths.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name string
		body string
	}{
		{MarkdownFile, RenderMarkdown(r)},
		{CSVFile, RenderCSV(r.Vaults)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
