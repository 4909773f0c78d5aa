package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed prompts/gallery.md
var galleryPersona string

// DefaultSystemInstruction is the gallery assistant persona.
func DefaultSystemInstruction() string {
	return strings.TrimSpace(galleryPersona)
}

// LoadSystemInstruction reads a persona override from path, falling back to
// the built-in persona when path is empty.
func LoadSystemInstruction(path string) (string, error) {
	if path == "" {
		return DefaultSystemInstruction(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read persona file: %w", err)
	}
	persona := strings.TrimSpace(string(data))
	if persona == "" {
		return "", fmt.Errorf("persona file %s is empty", path)
	}
	return persona, nil
}
