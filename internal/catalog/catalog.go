// Package catalog holds the immutable list of insurance products and their
// question-set sources.
package catalog

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sanctuari/rfq-cli/internal/model"
)

//go:embed products.yaml
var defaultProducts []byte

// Catalog is a read-only, ordered product table.
type Catalog struct {
	products []model.Product
	byID     map[string]model.Product
}

type catalogFile struct {
	Products []model.Product `yaml:"products"`
}

// Default returns the embedded product catalog.
func Default() (*Catalog, error) {
	return Parse(defaultProducts)
}

// Load reads a catalog from path, or returns the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Product ids must be unique and non-empty.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	return New(f.Products)
}

// New builds a catalog from products, preserving their order.
func New(products []model.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[string]model.Product, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, eris.Errorf("catalog: product %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, eris.Errorf("catalog: duplicate product id %q", p.ID)
		}
		if p.SourceRef == "" {
			return nil, eris.Errorf("catalog: product %q has no source", p.ID)
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// Lookup returns the product with the given id.
func (c *Catalog) Lookup(id string) (model.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List returns a copy of all products in catalog order.
func (c *Catalog) List() []model.Product {
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
