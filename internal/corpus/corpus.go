// Package corpus loads reference text for the bigram model.
package corpus

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

//go:embed data/english.txt
var sample string

// Sample returns the built-in English reference text.
func Sample() string {
	return sample
}

// Load reads a text file. An empty or whitespace-only file is an error.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("corpus is empty: %s", path)
	}
	return text, nil
}

// LoadOrSample loads path, or returns the built-in sample when path is empty.
func LoadOrSample(path string) (string, error) {
	if path == "" {
		return Sample(), nil
	}
	return Load(path)
}

// Letters counts how many alphabet symbols text contains.
func Letters(text string, alphabet cipher.Alphabet) int {
	n := 0
	for _, r := range text {
		if _, ok := alphabet.Index(r); ok {
			n++
		}
	}
	return n
}
