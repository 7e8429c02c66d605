package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AudioExtensions lists the extensions considered audio, in scan order.
var AudioExtensions = []string{".mp3", ".m4a", ".wav", ".aac", ".flac", ".ogg"}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindAudioFiles recursively finds audio files under dir. The result is
// grouped by extension in AudioExtensions order, each group in walk order.
// Extensions are matched case-sensitively. Unreadable subdirectories are
// skipped.
func FindAudioFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}

	if !IsDir(dir) {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}

	groups := make(map[string][]string, len(AudioExtensions))
	for _, ext := range AudioExtensions {
		groups[ext] = nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if _, ok := groups[ext]; ok {
			groups[ext] = append(groups[ext], path)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", dir, err)
	}

	var files []string
	for _, ext := range AudioExtensions {
		files = append(files, groups[ext]...)
	}
	return files, nil
}
