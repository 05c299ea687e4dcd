package catalog

import "github.com/shopspring/decimal"

// Product is one sellable item as exposed to terminals.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}
