package domain

import "slices"

// Product is a catalog entry as the listing page shows it.
type Product struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Price    int64    `json:"price" yaml:"price"`
	Sizes    []string `json:"sizes" yaml:"sizes"`
	ImageURL string   `json:"image_url,omitempty" yaml:"image_url"`
}

// HasSize reports whether size is one of the product's offered sizes. A
// product without a size list accepts any size.
func (p Product) HasSize(size string) bool {
	if len(p.Sizes) == 0 {
		return true
	}
	return slices.Contains(p.Sizes, size)
}
