package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/injoyai/logs"
)

// WriteMarkdown writes content to dir/fileName, creating dir if needed, and
// returns the written path.
func WriteMarkdown(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	logs.Debugf("[Results] written to: %s\n", path)
	return path, nil
}
