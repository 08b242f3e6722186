package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Walk calls fn for every regular file under the given roots.
// A root naming a file is passed through even without a known extension.
// Directory entries are visited in lexical order.
func Walk(roots []string, fn func(path string) error) error {
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := fn(root); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("failed to walk %s: %w", path, err)
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if DetectContainer(path) == ContainerUnknown {
				return nil
			}
			return fn(path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// uniqueRoots returns a copy of roots with duplicates removed, order kept
func uniqueRoots(roots []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		clean := filepath.Clean(r)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}
