// Package state loads, migrates, and persists the economic state document.
package state

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// File names under a persona's directory.
const (
	StateFile    = "economic-state.json"
	IdentityFile = "economic-identity.json"
)

// ErrInvalidSlug is returned for empty slugs or slugs containing path
// separators.
var ErrInvalidSlug = errors.New("state: invalid persona slug")

// Location identifies one persona's documents on disk. It is passed
// explicitly to every store call.
type Location struct {
	Slug string
	Dir  string
}

// Validate checks that the slug is a single safe path element.
func (l Location) Validate() error {
	s := strings.TrimSpace(l.Slug)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, l.Slug)
	}
	return nil
}

// PersonaDir is the directory holding the persona's documents.
func (l Location) PersonaDir() string {
	return filepath.Join(l.Dir, l.Slug)
}

// StatePath is the path of the economic state document.
func (l Location) StatePath() string {
	return filepath.Join(l.PersonaDir(), StateFile)
}

// IdentityPath is the path of the identity document.
func (l Location) IdentityPath() string {
	return filepath.Join(l.PersonaDir(), IdentityFile)
}
