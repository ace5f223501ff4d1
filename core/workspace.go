package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const credentialsFileName = "creds.json"

// FSWorkspaces keeps one scoped directory per identity under a base path,
// holding the provider's serialized credential and key material.
type FSWorkspaces struct {
	base string
}

func NewFSWorkspaces(base string) (*FSWorkspaces, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("core: workspace base path is required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("core: create workspace base %q: %w", base, err)
	}
	return &FSWorkspaces{base: base}, nil
}

func (w *FSWorkspaces) Path(number string) string {
	if w == nil {
		return ""
	}
	return filepath.Join(w.base, "session_"+strings.TrimSpace(number))
}

func (w *FSWorkspaces) Ensure(number string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("core: workspace manager is not configured")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return "", fmt.Errorf("core: identity is required for workspace")
	}
	path := w.Path(number)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("core: create workspace %q: %w", path, err)
	}
	return path, nil
}

func (w *FSWorkspaces) WriteCredentials(number string, payload []byte) (string, error) {
	path, err := w.Ensure(number)
	if err != nil {
		return "", err
	}
	file := filepath.Join(path, credentialsFileName)
	if err := os.WriteFile(file, payload, 0o600); err != nil {
		return "", fmt.Errorf("core: write credentials to %q: %w", file, err)
	}
	return path, nil
}

// Remove deletes the identity's workspace. Removing a missing workspace is
// not an error.
func (w *FSWorkspaces) Remove(number string) error {
	if w == nil {
		return fmt.Errorf("core: workspace manager is not configured")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Errorf("core: identity is required for workspace removal")
	}
	if err := os.RemoveAll(w.Path(number)); err != nil {
		return fmt.Errorf("core: remove workspace for %q: %w", number, err)
	}
	return nil
}

var _ WorkspaceManager = (*FSWorkspaces)(nil)
