package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/report"
)

// writeArtifacts writes every artifact into dir and returns the written
// paths in name order.
func writeArtifacts(dir string, artifacts map[string][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, artifacts[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// outputDir returns where the artifacts of input go. With several inputs
// each gets its own subdirectory named after the file.
func outputDir(base, input string, multiple bool) string {
	if !multiple {
		return base
	}
	name := filepath.Base(input)
	return filepath.Join(base, strings.TrimSuffix(name, filepath.Ext(name)))
}

// loadReport reads a JSON report written by "build -f json".
func loadReport(path string) (*report.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "report %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return report.Unmarshal(data)
}
