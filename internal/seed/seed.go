// Package seed loads the initial catalog.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultSeed []byte

type file struct {
	Products []domain.Product `yaml:"products"`
}

// Default returns the embedded seed catalog.
func Default() ([]domain.Product, error) {
	return Decode(bytes.NewReader(defaultSeed))
}

// Load reads a seed file from path, or the embedded default when path is empty.
func Load(path string) ([]domain.Product, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) ([]domain.Product, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sf file
	if err := dec.Decode(&sf); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seen := make(map[int64]struct{}, len(sf.Products))
	for _, p := range sf.Products {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d in seed", domain.ErrInvalidProduct, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	if err := domain.ValidateAll(sf.Products); err != nil {
		return nil, err
	}
	return sf.Products, nil
}
