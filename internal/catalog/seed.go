package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/southsidewear/storefront/internal/domain"
)

type seedFile struct {
	Products []domain.Product `yaml:"products"`
}

// LoadSeed reads a YAML product list. Products without an id get the slug of
// their name.
func LoadSeed(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]domain.Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	seen := make(map[string]bool, len(f.Products))
	for i := range f.Products {
		p := &f.Products[i]
		if p.ID == "" {
			p.ID = Slug(p.Name)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("catalog seed: product %d has neither id nor name", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog seed: duplicate product id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return f.Products, nil
}
