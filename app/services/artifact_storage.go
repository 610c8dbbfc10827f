// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"log"
	"os"
)

// ArtifactStorage owns the lifecycle of rendered invoice files
type ArtifactStorage interface {
	Remove(paths ...string)
	Exists(path string) bool
}

// LocalArtifactStorage implements ArtifactStorage on the local filesystem
type LocalArtifactStorage struct{}

// NewLocalArtifactStorage creates a filesystem-backed artifact storage
func NewLocalArtifactStorage() ArtifactStorage {
	return &LocalArtifactStorage{}
}

// Remove deletes the given files, skipping empty paths. Missing files are
// not an error; a failed removal is logged and the rest continue.
func (s *LocalArtifactStorage) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove artifact %s: %v", p, err)
		}
	}
}

// Exists reports whether the file at path is present and readable
func (s *LocalArtifactStorage) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
