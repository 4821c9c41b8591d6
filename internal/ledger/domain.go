package ledger

import (
	"errors"
	"fmt"
	"time"
)

// SaleStatus enumerates the lifecycle states of a sale. A purged sale has no
// status because the row is gone.
type SaleStatus string

const (
	// SaleStatusActive means the sale is counted against product stock.
	SaleStatusActive SaleStatus = "ACTIVE"
	// SaleStatusSoftDeleted means the sale returned its stock and is kept for audit.
	SaleStatusSoftDeleted SaleStatus = "SOFT_DELETED"
)

// Sale models a single sale transaction against a product.
type Sale struct {
	ID              int64
	ProductID       int64
	Quantity        int64
	PriceAtSale     float64
	ActualReceived  float64
	DiscountPercent float64
	Note            string
	SoldAt          time.Time
	Status          SaleStatus
	DeletedAt       *time.Time
	CreatedAt       time.Time
}

// Active reports whether the sale currently holds stock.
func (s Sale) Active() bool {
	return s.Status == SaleStatusActive
}

// StockRow is the locked product projection the ledger operates on.
type StockRow struct {
	ProductID int64
	Stock     int64
}

// SaleInput describes a sale to record. Zero values for ActualReceived,
// DiscountPercent and SoldAt take the documented defaults.
type SaleInput struct {
	ProductID       int64
	Quantity        int64
	PriceAtSale     float64
	ActualReceived  float64
	DiscountPercent float64
	Note            string
	SoldAt          time.Time
	RequestID       string
}

// SaleDetailsInput updates the non-stock fields of an active sale.
type SaleDetailsInput struct {
	PriceAtSale     float64
	ActualReceived  float64
	DiscountPercent float64
	Note            string
	SoldAt          time.Time
}

// ErrSaleNotFound indicates an id-based sale lookup missed.
var ErrSaleNotFound = errors.New("ledger: sale not found")

// ErrProductNotFound indicates the referenced product does not exist.
var ErrProductNotFound = errors.New("ledger: product not found")

// ErrInvalidState indicates a lifecycle transition from the wrong state,
// e.g. purging a sale that was never soft-deleted.
var ErrInvalidState = errors.New("ledger: sale is not in a valid state for this operation")

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("ledger: quantity must be at least 1")

// ErrInvalidPrice indicates a negative price or received amount.
var ErrInvalidPrice = errors.New("ledger: price must be >= 0")

// InsufficientStockError is returned when a requested quantity exceeds the
// product's current stock. It carries the stock seen under lock so callers
// can show the shortfall.
type InsufficientStockError struct {
	ProductID    int64
	Requested    int64
	CurrentStock int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for product %d: requested %d, %d left", e.ProductID, e.Requested, e.CurrentStock)
}
