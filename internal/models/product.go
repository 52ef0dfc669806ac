package models

import "github.com/shopspring/decimal"

// Wallpaper is a purchasable digital wallpaper.
type Wallpaper struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Author      string          `json:"author" yaml:"author"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Category    Category        `json:"category" yaml:"category"`
	Resolution  Resolution      `json:"resolution" yaml:"resolution"`
	ImageURL    string          `json:"image_url" yaml:"image_url"`
	ObjectKey   string          `json:"-" yaml:"object_key"` // key of the full-resolution file in the bucket
	Tags        []string        `json:"tags" yaml:"tags"`
}
