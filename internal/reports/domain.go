package reports

import "time"

// Granularity selects the series bucket size.
type Granularity string

const (
	// GranularityDay buckets the series per calendar day.
	GranularityDay Granularity = "day"
	// GranularityMonth buckets the series per calendar month.
	GranularityMonth Granularity = "month"
)

// HistoryRow is the raw sale+product join the repository returns.
type HistoryRow struct {
	SaleID          int64
	ProductID       int64
	ProductName     string
	ProductPrice    float64
	ProductCost     float64
	Quantity        int64
	PriceAtSale     float64
	ActualReceived  float64
	DiscountPercent float64
	Note            string
	SoldAt          time.Time
	DeletedAt       *time.Time
}

// HistoryEntry is a history row with the derived money figures attached.
type HistoryEntry struct {
	SaleID          int64      `json:"sale_id"`
	ProductID       int64      `json:"product_id"`
	ProductName     string     `json:"product_name"`
	Quantity        int64      `json:"quantity"`
	PriceAtSale     float64    `json:"price_at_sale"`
	ActualReceived  float64    `json:"actual_received"`
	DiscountPercent float64    `json:"discount_percent"`
	Note            string     `json:"note,omitempty"`
	SoldAt          time.Time  `json:"sold_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`

	Commission      float64 `json:"commission"`
	CommissionPct   float64 `json:"commission_pct"`
	DiscountAmount  float64 `json:"discount_amount"`
	DiscountedPrice float64 `json:"discounted_price"`
	Profit          float64 `json:"profit"`
	ProfitPct       float64 `json:"profit_pct"`
}

// Summary aggregates a history listing.
type Summary struct {
	TotalQty        int64   `json:"total_qty"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalProfit     float64 `json:"total_profit"`
	TotalCommission float64 `json:"total_commission"`
	TotalDiscount   float64 `json:"total_discount"`
}

// HistoryFilter narrows the history listing. Zero times mean unbounded.
type HistoryFilter struct {
	From time.Time
	To   time.Time
}

// SeriesFilter narrows the time-series aggregation.
type SeriesFilter struct {
	Granularity Granularity
	From        time.Time
	To          time.Time
	ProductID   int64
}

// SeriesRow is one aggregated bucket from the repository.
type SeriesRow struct {
	Period time.Time
	Amount float64
	Qty    int64
	Count  int64
}

// SeriesPoint is one bucket shaped for the chart consumer.
type SeriesPoint struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Qty    int64   `json:"qty"`
}

// SeriesTotals aggregates the whole filtered range.
type SeriesTotals struct {
	Amount     float64 `json:"amount"`
	Qty        int64   `json:"qty"`
	CountSales int64   `json:"count_sales"`
}

// Series is the full chart payload.
type Series struct {
	Granularity Granularity   `json:"granularity"`
	Points      []SeriesPoint `json:"points"`
	Totals      SeriesTotals  `json:"totals"`
}

// Label formats a bucket start for the given granularity.
func (g Granularity) Label(t time.Time) string {
	if g == GranularityMonth {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}
