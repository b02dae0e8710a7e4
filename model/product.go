package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places a price may carry. Prices
// are stored as NUMERIC(14, 2).
const PriceScale = 2

var maxPrice = decimal.New(1, 12)

// Product is a catalog listing. The cart and checkout code only read
// ID, SellerID, Title and Price.
type Product struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
	CreatedAt   time.Time
}

// Valid reports whether p satisfies the catalog invariants.
func (p Product) Valid() bool {
	return p.ID != "" && p.SellerID != "" && p.Title != "" && p.Price.IsPositive()
}

// PriceFits reports whether price can be stored without rounding.
func PriceFits(price decimal.Decimal) bool {
	return price.Equal(price.Round(PriceScale)) && price.LessThan(maxPrice)
}
