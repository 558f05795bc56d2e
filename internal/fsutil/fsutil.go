// Package fsutil provides filesystem checks for CLI inputs and stable digests for report text.
package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const digestPrefix = "sha256:"

// ResolveFileInDirectory joins dir and file and confirms that dir is a directory
// and the result is a regular file. An absolute file is used as-is.
func ResolveFileInDirectory(file, dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, file)
	}
	info, err = os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("access file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	return filepath.Clean(path), nil
}

// ReportDigest returns a stable digest of report text.
// Same text always yields the same digest; used to skip re-delivering unchanged reports.
func ReportDigest(text string) string {
	hash := sha256.Sum256([]byte(text))
	return digestPrefix + hex.EncodeToString(hash[:])
}
