package models

import "github.com/shopspring/decimal"

type CartItem struct {
	Wallpaper Wallpaper `json:"wallpaper"`
	Quantity  int       `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Wallpaper.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartTotal sums the line totals and rounds the result to cents.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return Round(total)
}
