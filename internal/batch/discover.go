package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"rookery/internal/vectorio"
)

const processedSuffix = "_processed_nests"

var yearPattern = regexp.MustCompile(`^(19|20)\d{2}$`)

// Discover expands paths into a sorted, de-duplicated list of detection
// files. Directories are walked recursively; hidden entries and previously
// written nest tables are skipped. Explicit file arguments must have a
// supported extension.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if !vectorio.Supported(root) {
				return nil, fmt.Errorf("%s: %w", root, vectorio.ErrUnsupportedFormat)
			}
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !vectorio.Supported(path) || isProcessedOutput(name) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isProcessedOutput(name string) bool {
	return strings.Contains(strings.TrimSuffix(name, filepath.Ext(name)), processedSuffix)
}

// InferSiteYear reads site and year from a .../<year>/<site>/<file> layout.
func InferSiteYear(path string) (site, year string, ok bool) {
	dir := filepath.Dir(filepath.Clean(path))
	site = filepath.Base(dir)
	year = filepath.Base(filepath.Dir(dir))
	if !yearPattern.MatchString(year) || site == "" || site == "." || site == string(filepath.Separator) {
		return "", "", false
	}
	return site, year, true
}
