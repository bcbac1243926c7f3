package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/poiesic/autotag/core"
)

// DefaultMaxFileSize is the largest file ReadFile accepts by default.
const DefaultMaxFileSize int64 = 10 << 20

// DefaultAllowedExtensions lists the file types ReadFile accepts by default.
var DefaultAllowedExtensions = []string{".txt"}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReadFile loads a text file as an Input. The extension must be in
// allowedExt (compared case-insensitively, with or without the dot) and the
// file no larger than maxSize bytes. Invalid UTF-8 sequences are dropped.
func ReadFile(path string, maxSize int64, allowedExt []string) (*Input, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !extensionAllowed(ext, allowedExt) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrExtensionNotAllowed, ext, strings.Join(allowedExt, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := strings.ToValidUTF8(string(data), "")
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	name := SanitizeFilename(filepath.Base(path))
	if name == "" {
		return nil, &core.InputError{Field: "filename", Reason: fmt.Sprintf("%q has no usable characters", filepath.Base(path))}
	}

	return &Input{
		Filename: name,
		Content:  content,
		FileType: strings.TrimPrefix(ext, "."),
		FileSize: info.Size(),
	}, nil
}

// SanitizeFilename reduces name to ASCII letters, digits, dots, dashes and
// underscores. Runs of other characters become one underscore, and leading
// dots and underscores are dropped.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.TrimLeft(name, "._")
}

func extensionAllowed(ext string, allowed []string) bool {
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(allowed, func(a string) bool {
		a = strings.ToLower(strings.TrimSpace(a))
		return a == ext || "."+a == ext
	})
}
