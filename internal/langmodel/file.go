package langmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

// TableExt marks files holding precomputed bigram counts.
const TableExt = ".bigrams"

// LoadFile builds weights from path. Files ending in TableExt are read as a
// count table; anything else is treated as raw reference text.
func LoadFile(path string, alpha float64, alphabet cipher.Alphabet) (*Weights, error) {
	if strings.EqualFold(filepath.Ext(path), TableExt) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close for read-only table.
				_ = cerr
			}
		}()
		w, err := ReadWeights(f, alpha, alphabet)
		if err != nil {
			return nil, fmt.Errorf("failed to read bigram table %s: %w", path, err)
		}
		return w, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadWeights(string(data), alpha, alphabet)
}

// SaveFile writes the count table of w to path.
func SaveFile(path string, w *Weights) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
