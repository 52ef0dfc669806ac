// Package catalog serves the read-only list of wallpapers for sale.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed wallpapers.yaml
var defaultCatalog []byte

type record struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Price       string   `yaml:"price"`
	Category    string   `yaml:"category"`
	Resolution  string   `yaml:"resolution"`
	ImageURL    string   `yaml:"image_url"`
	ObjectKey   string   `yaml:"object_key"`
	Tags        []string `yaml:"tags"`
}

type file struct {
	Wallpapers []record `yaml:"wallpapers"`
}

type Catalog struct {
	items []models.Wallpaper
	byID  map[string]int
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path means the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(f.Wallpapers))}
	for i, r := range f.Wallpapers {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate id", r.ID)
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: price: %w", r.ID, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("catalog entry %q: price must be positive", r.ID)
		}
		w := models.Wallpaper{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Author:      r.Author,
			Price:       price,
			Category:    models.Category(r.Category),
			Resolution:  models.Resolution(r.Resolution),
			ImageURL:    r.ImageURL,
			ObjectKey:   r.ObjectKey,
			Tags:        r.Tags,
		}
		if !w.Category.Valid() {
			return nil, fmt.Errorf("catalog entry %q: unknown category %q", r.ID, r.Category)
		}
		if !w.Resolution.Valid() {
			return nil, fmt.Errorf("catalog entry %q: unknown resolution %q", r.ID, r.Resolution)
		}
		c.byID[w.ID] = len(c.items)
		c.items = append(c.items, w)
	}
	return c, nil
}

func (c *Catalog) List(ctx context.Context) ([]models.Wallpaper, error) {
	out := make([]models.Wallpaper, len(c.items))
	copy(out, c.items)
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (models.Wallpaper, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Wallpaper{}, apperr.NotFound("catalog.Get", "wallpaper", id)
	}
	return c.items[i], nil
}

func (c *Catalog) ByCategory(ctx context.Context, category models.Category) ([]models.Wallpaper, error) {
	return c.Filter(ctx, &category, nil)
}

func (c *Catalog) ByResolution(ctx context.Context, resolution models.Resolution) ([]models.Wallpaper, error) {
	return c.Filter(ctx, nil, &resolution)
}

// Filter keeps wallpapers matching every non-nil criterion.
func (c *Catalog) Filter(ctx context.Context, category *models.Category, resolution *models.Resolution) ([]models.Wallpaper, error) {
	if category != nil && !category.Valid() {
		return nil, apperr.Validation("catalog.Filter", "unknown category %q", *category)
	}
	if resolution != nil && !resolution.Valid() {
		return nil, apperr.Validation("catalog.Filter", "unknown resolution %q", *resolution)
	}

	out := []models.Wallpaper{}
	for _, w := range c.items {
		if category != nil && w.Category != *category {
			continue
		}
		if resolution != nil && w.Resolution != *resolution {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}
