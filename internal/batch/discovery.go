package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions lists the photo formats the queue can decode.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// DiscoverPhotos expands the given paths into a sorted list of image files.
// Directories are walked (recursively when cfg.Recursive is set) and plain
// files are taken as-is after passing the include/exclude filters.
func DiscoverPhotos(paths []string, cfg *Config) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}

		if info.IsDir() {
			dirFiles, err := discoverInDirectory(path, cfg)
			if err != nil {
				return nil, err
			}
			for _, f := range dirFiles {
				if !seen[f] {
					seen[f] = true
					files = append(files, f)
				}
			}
			continue
		}

		if shouldIncludeFile(path, cfg) && !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files, nil
}

func discoverInDirectory(dir string, cfg *Config) ([]string, error) {
	var files []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && !cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIncludeFile(path, cfg) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.Walk(dir, walkFn); err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	return files, nil
}

func shouldIncludeFile(path string, cfg *Config) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExtensions[ext] {
		return false
	}

	name := filepath.Base(path)

	if len(cfg.IncludePatterns) > 0 && !matchesAnyPattern(name, cfg.IncludePatterns) {
		return false
	}
	if matchesAnyPattern(name, cfg.ExcludePatterns) {
		return false
	}
	return true
}

func matchesAnyPattern(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}
