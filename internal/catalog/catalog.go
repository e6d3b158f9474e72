package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrNotFound is returned when a product lookup misses.
var ErrNotFound = errors.New("catalog: product not found")

// Product is a sellable shoe model. Price is in minor units of the catalog currency.
type Product struct {
	SKU         string   `yaml:"sku"`
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       int64    `yaml:"price"`
	Sizes       []int    `yaml:"sizes"`
	Images      []string `yaml:"images"`
	Featured    bool     `yaml:"featured"`
}

// HasSize reports whether size is offered.
func (p Product) HasSize(size int) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// Image returns the primary image path, or "".
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Catalog is an immutable, ordered product list with lookup indexes.
type Catalog struct {
	Currency string
	products []Product
	bySKU    map[string]int
	bySlug   map[string]int
}

type document struct {
	Currency string    `yaml:"currency"`
	Products []Product `yaml:"products"`
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from name in fsys. A nil fsys reads from the OS filesystem.
func Load(fsys fs.FS, name string) (*Catalog, error) {
	var (
		raw []byte
		err error
	)
	if fsys == nil {
		raw, err = os.ReadFile(name)
	} else {
		raw, err = fs.ReadFile(fsys, name)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", name, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	c := &Catalog{
		Currency: strings.ToUpper(strings.TrimSpace(doc.Currency)),
		bySKU:    make(map[string]int, len(doc.Products)),
		bySlug:   make(map[string]int, len(doc.Products)),
	}
	if c.Currency == "" {
		c.Currency = "COP"
	}
	for i, p := range doc.Products {
		p.SKU = strings.TrimSpace(p.SKU)
		p.Slug = strings.TrimSpace(p.Slug)
		p.Name = strings.TrimSpace(p.Name)
		switch {
		case p.SKU == "":
			return nil, fmt.Errorf("catalog: product %d: missing sku", i)
		case p.Slug == "":
			return nil, fmt.Errorf("catalog: product %s: missing slug", p.SKU)
		case p.Price < 0:
			return nil, fmt.Errorf("catalog: product %s: negative price", p.SKU)
		case len(p.Sizes) == 0:
			return nil, fmt.Errorf("catalog: product %s: no sizes", p.SKU)
		}
		if _, dup := c.bySKU[p.SKU]; dup {
			return nil, fmt.Errorf("catalog: duplicate sku %s", p.SKU)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate slug %s", p.Slug)
		}
		c.bySKU[p.SKU] = len(c.products)
		c.bySlug[p.Slug] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// List returns every product in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Featured returns products flagged for the home slideshow, in catalog order.
func (c *Catalog) Featured() []Product {
	var out []Product
	for _, p := range c.products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) BySKU(sku string) (Product, error) {
	i, ok := c.bySKU[strings.TrimSpace(sku)]
	if !ok {
		return Product{}, ErrNotFound
	}
	return c.products[i], nil
}

func (c *Catalog) BySlug(slug string) (Product, error) {
	i, ok := c.bySlug[strings.TrimSpace(slug)]
	if !ok {
		return Product{}, ErrNotFound
	}
	return c.products[i], nil
}
