package order

import "github.com/shopspring/decimal"

// ProductSales aggregates paid orders for one product.
type ProductSales struct {
	ProductID   int64
	ProductName string
	Count       int
	Revenue     decimal.Decimal
}

// SalesStats summarizes paid orders. TopProducts holds at most five entries
// ordered by paid count descending, ties broken by product id ascending.
type SalesStats struct {
	TotalRevenue decimal.Decimal
	PaidCount    int
	TopProducts  []ProductSales
}

const TopProductsLimit = 5
