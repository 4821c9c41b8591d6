package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplite/shoplite/internal/shared"
)

// ErrProductNotFound indicates an id-based product lookup missed.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrDuplicateSKU indicates a unique constraint violation on sku.
var ErrDuplicateSKU = errors.New("catalog: sku already in use")

// Repository persists products in PostgreSQL.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, COALESCE(sku,''), price, cost, stock, COALESCE(colors,''), COALESCE(image,''), created_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ``
	args := []any{}
	if filters.Search != "" {
		where = ` WHERE (name ILIKE $1 OR sku ILIKE $1 OR colors ILIKE $1)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY id DESC`
	if !filters.ShowAll {
		page := shared.NewPagination(filters.Page, filters.PerPage, total)
		args = append(args, page.PerPage, page.Offset())
		if filters.Search != "" {
			query += ` LIMIT $2 OFFSET $3`
		} else {
			query += ` LIMIT $1 OFFSET $2`
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Cost, &p.Stock, &p.Colors, &p.Image, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Cost, &p.Stock, &p.Colors, &p.Image, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, sku, price, cost, stock, colors, image, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		product.Name, nullString(product.SKU), product.Price, product.Cost, product.Stock, nullString(product.Colors), nullString(product.Image), now).Scan(&product.ID)
	if err != nil {
		return Product{}, mapConstraint(err)
	}
	product.CreatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name=$2, sku=$3, price=$4, cost=$5, colors=$6, image=$7 WHERE id=$1`,
		id, product.Name, nullString(product.SKU), product.Price, product.Cost, nullString(product.Colors), nullString(product.Image))
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSKU
	}
	return err
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
