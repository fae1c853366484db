// Package storage defines the inbox file-system abstraction.
package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes an importable file.
type FileInfo struct {
	Path      string // relative to the root
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for inbox file operations. Paths are relative
// to the provider root.
type Provider interface {
	// List returns every importable file under dir, skipping hidden
	// files and directories.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

var importable = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".ipynb":    true,
}

// Importable reports whether name has an extension the importer accepts.
func Importable(name string) bool {
	return importable[strings.ToLower(filepath.Ext(name))]
}

// Hidden reports whether any element of the relative path starts with a dot.
func Hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
