package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplite/shoplite/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. All
// stock writes are relative updates; the lock comes from GetProductForUpdate.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (StockRow, error)
	AdjustStock(ctx context.Context, productID, delta int64) error
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	GetSale(ctx context.Context, saleID int64) (Sale, error)
	UpdateSaleDetails(ctx context.Context, saleID int64, details SaleDetailsInput) error
	MarkSaleDeleted(ctx context.Context, saleID int64, at time.Time) error
	MarkSaleRestored(ctx context.Context, saleID int64) error
	DeleteSale(ctx context.Context, saleID int64) error
	DeleteSalesForProduct(ctx context.Context, productID int64) (int64, error)
	DeleteProduct(ctx context.Context, productID int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// ErrProductReferenced signals a product delete blocked by dependent sales.
var ErrProductReferenced = errors.New("ledger: product has dependent sales")

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (StockRow, error) {
	var row StockRow
	err := r.tx.QueryRow(ctx, `SELECT id, stock FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&row.ProductID, &row.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockRow{}, ErrProductNotFound
		}
		return StockRow{}, err
	}
	return row, nil
}

func (r *txRepository) AdjustStock(ctx context.Context, productID, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, productID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (product_id, quantity, price_at_sale, actual_received, discount_percent, note, sold_at, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) RETURNING id`,
		sale.ProductID, sale.Quantity, sale.PriceAtSale, sale.ActualReceived, sale.DiscountPercent, nullString(sale.Note), sale.SoldAt, string(sale.Status)).Scan(&id)
	return id, err
}

func (r *txRepository) GetSale(ctx context.Context, saleID int64) (Sale, error) {
	return scanSale(r.tx.QueryRow(ctx, `SELECT id, product_id, quantity, price_at_sale, actual_received, discount_percent, COALESCE(note,''), sold_at, status, deleted_at, created_at
FROM sales WHERE id=$1 FOR UPDATE`, saleID))
}

func (r *txRepository) UpdateSaleDetails(ctx context.Context, saleID int64, details SaleDetailsInput) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET price_at_sale=$2, actual_received=$3, discount_percent=$4, note=$5, sold_at=$6 WHERE id=$1`,
		saleID, details.PriceAtSale, details.ActualReceived, details.DiscountPercent, nullString(details.Note), details.SoldAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepository) MarkSaleDeleted(ctx context.Context, saleID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET status=$2, deleted_at=$3 WHERE id=$1`, saleID, string(SaleStatusSoftDeleted), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepository) MarkSaleRestored(ctx context.Context, saleID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET status=$2, deleted_at=NULL WHERE id=$1`, saleID, string(SaleStatusActive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepository) DeleteSale(ctx context.Context, saleID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id=$1`, saleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepository) DeleteSalesForProduct(ctx context.Context, productID int64) (int64, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE product_id=$1`, productID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) DeleteProduct(ctx context.Context, productID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProductDirect attempts a plain delete outside any open transaction.
// A foreign-key violation from dependent sales maps to ErrProductReferenced;
// it cannot run inside WithTx because the violation would abort that tx.
func (r *Repository) DeleteProductDirect(ctx context.Context, productID int64) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, productID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProductReferenced
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetSaleByID reads a sale outside of any transaction.
func (r *Repository) GetSaleByID(ctx context.Context, saleID int64) (Sale, error) {
	if r == nil {
		return Sale{}, errors.New("ledger repository not initialised")
	}
	return scanSale(r.pool.QueryRow(ctx, `SELECT id, product_id, quantity, price_at_sale, actual_received, discount_percent, COALESCE(note,''), sold_at, status, deleted_at, created_at
FROM sales WHERE id=$1`, saleID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (Sale, error) {
	var s Sale
	var status string
	err := row.Scan(&s.ID, &s.ProductID, &s.Quantity, &s.PriceAtSale, &s.ActualReceived, &s.DiscountPercent, &s.Note, &s.SoldAt, &status, &s.DeletedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	s.Status = SaleStatus(status)
	return s, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
