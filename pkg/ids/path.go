package ids

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SafeJoinVault joins a vault root and a relative note path and ensures the
// result stays within the vault and names a markdown file. The escape
// checks are kept from the teacher's obsidian.SafeJoinVaultPath; the
// extension check is new since this server, unlike the CLI, never joins a
// path for anything but a note file.
func SafeJoinVault(vaultPath, relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", relativePath)
	}
	cleaned := filepath.Clean(strings.TrimSpace(relativePath))
	cleaned = strings.TrimPrefix(cleaned, string(filepath.Separator))
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("note path cannot be empty")
	}
	if strings.ToLower(filepath.Ext(cleaned)) != ".md" {
		return "", fmt.Errorf("note path must have a .md extension: %s", relativePath)
	}

	absVault, err := filepath.Abs(vaultPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault path: %w", err)
	}

	joined := filepath.Join(absVault, filepath.FromSlash(cleaned))
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve note path: %w", err)
	}

	if absJoined != absVault && !strings.HasPrefix(absJoined, absVault+string(filepath.Separator)) {
		return "", fmt.Errorf("note path escapes vault: %s", relativePath)
	}

	return absJoined, nil
}

// NormalizePath converts a path to use forward slashes consistently, the
// form stored in the index and compared against for link resolution.
func NormalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// RelativeToVault returns path relative to vaultPath using forward slashes.
func RelativeToVault(vaultPath, path string) (string, error) {
	rel, err := filepath.Rel(vaultPath, path)
	if err != nil {
		return "", err
	}
	return NormalizePath(rel), nil
}
