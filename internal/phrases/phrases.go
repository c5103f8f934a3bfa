// Package phrases renders the user-facing texts of the bot from an
// embedded YAML phrase book.
package phrases

import (
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var defaultBook []byte

// Book maps phrase keys to fmt templates.
type Book struct {
	phrases map[string]string
}

// Default returns the embedded phrase book.
func Default() *Book {
	b, err := Load(defaultBook)
	if err != nil {
		// The embedded file is part of the binary.
		panic(fmt.Sprintf("phrases: embedded book is invalid: %v", err))
	}
	return b
}

// Load parses a YAML document of key: template pairs.
func Load(data []byte) (*Book, error) {
	phrases := make(map[string]string)
	if err := yaml.Unmarshal(data, &phrases); err != nil {
		return nil, fmt.Errorf("failed to parse phrase book: %w", err)
	}
	return &Book{phrases: phrases}, nil
}

// Phrase renders the template stored under key with args.
// A missing key renders as the key itself.
func (b *Book) Phrase(key string, args ...any) string {
	tmpl, ok := b.phrases[key]
	if !ok {
		slog.Warn("Phrase not found", "key", key)
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Has reports whether the book defines key.
func (b *Book) Has(key string) bool {
	_, ok := b.phrases[key]
	return ok
}
