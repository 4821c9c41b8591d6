package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads sale/product projections from PostgreSQL. The ledger owns
// all writes; reporting only queries.
type Repository interface {
	History(ctx context.Context, filter HistoryFilter) ([]HistoryRow, error)
	DeletedSales(ctx context.Context) ([]HistoryRow, error)
	Series(ctx context.Context, filter SeriesFilter) ([]SeriesRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const historyColumns = `s.id, s.product_id, p.name, p.price, p.cost, s.quantity, s.price_at_sale, s.actual_received, s.discount_percent, COALESCE(s.note,''), s.sold_at, s.deleted_at`

func (r *repository) History(ctx context.Context, filter HistoryFilter) ([]HistoryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+historyColumns+`
FROM sales s JOIN products p ON p.id = s.product_id
WHERE s.status = 'ACTIVE'
  AND s.sold_at >= COALESCE($1, '-infinity'::timestamptz)
  AND s.sold_at <= COALESCE($2, 'infinity'::timestamptz)
ORDER BY s.sold_at DESC, s.id DESC`, nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *repository) DeletedSales(ctx context.Context) ([]HistoryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+historyColumns+`
FROM sales s JOIN products p ON p.id = s.product_id
WHERE s.status = 'SOFT_DELETED'
ORDER BY s.deleted_at DESC, s.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *repository) Series(ctx context.Context, filter SeriesFilter) ([]SeriesRow, error) {
	trunc := "day"
	if filter.Granularity == GranularityMonth {
		trunc = "month"
	}
	rows, err := r.pool.Query(ctx, `SELECT date_trunc($1, s.sold_at) AS period,
       COALESCE(SUM(s.quantity * s.price_at_sale), 0),
       COALESCE(SUM(s.quantity), 0),
       COUNT(*)
FROM sales s
WHERE s.status = 'ACTIVE'
  AND ($2::bigint IS NULL OR s.product_id = $2)
  AND s.sold_at >= COALESCE($3, '-infinity'::timestamptz)
  AND s.sold_at <= COALESCE($4, 'infinity'::timestamptz)
GROUP BY period
ORDER BY period ASC`, trunc, nullInt(filter.ProductID), nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []SeriesRow{}
	for rows.Next() {
		var row SeriesRow
		if err := rows.Scan(&row.Period, &row.Amount, &row.Qty, &row.Count); err != nil {
			return nil, err
		}
		series = append(series, row)
	}
	return series, rows.Err()
}

func scanHistory(rows pgx.Rows) ([]HistoryRow, error) {
	history := []HistoryRow{}
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(&row.SaleID, &row.ProductID, &row.ProductName, &row.ProductPrice, &row.ProductCost,
			&row.Quantity, &row.PriceAtSale, &row.ActualReceived, &row.DiscountPercent, &row.Note, &row.SoldAt, &row.DeletedAt); err != nil {
			return nil, err
		}
		history = append(history, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
