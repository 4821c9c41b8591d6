package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplite/shoplite/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	DeleteProductDirect(ctx context.Context, productID int64) error
	GetSaleByID(ctx context.Context, saleID int64) (Sale, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBumper invalidates the reporting cache after stock or sale mutations.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service coordinates the stock-consistent sale lifecycle. Every operation is
// one atomic unit: a failed stock check aborts with zero side effects.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	bumper      CacheBumper
}

// NewService builds Service. audit, idempotency and bumper may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, bumper CacheBumper) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, bumper: bumper}
}

// RecordSale validates stock under a product row lock, persists the sale and
// decrements stock by quantity, all in one transaction.
func (s *Service) RecordSale(ctx context.Context, input SaleInput) (Sale, error) {
	if input.ProductID <= 0 {
		return Sale{}, ErrProductNotFound
	}
	if input.Quantity < 1 {
		return Sale{}, ErrInvalidQuantity
	}
	if input.PriceAtSale < 0 || input.ActualReceived < 0 {
		return Sale{}, ErrInvalidPrice
	}

	sale := Sale{
		ProductID:       input.ProductID,
		Quantity:        input.Quantity,
		PriceAtSale:     input.PriceAtSale,
		ActualReceived:  input.ActualReceived,
		DiscountPercent: input.DiscountPercent,
		Note:            input.Note,
		SoldAt:          input.SoldAt,
		Status:          SaleStatusActive,
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}
	if sale.ActualReceived <= 0 {
		sale.ActualReceived = sale.PriceAtSale
	}

	insertedKey := false
	key := ""
	if input.RequestID != "" {
		if _, err := uuid.Parse(input.RequestID); err != nil {
			return Sale{}, fmt.Errorf("ledger: invalid request id: %w", err)
		}
		key = fmt.Sprintf("sale:%s", input.RequestID)
		if s.idempotency != nil {
			if err := s.idempotency.CheckAndInsert(ctx, key, "ledger"); err != nil {
				return Sale{}, err
			}
			insertedKey = true
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		row, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if input.Quantity > row.Stock {
			return &InsufficientStockError{ProductID: input.ProductID, Requested: input.Quantity, CurrentStock: row.Stock}
		}
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		return tx.AdjustStock(ctx, input.ProductID, -input.Quantity)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Sale{}, err
	}

	s.recordAudit(ctx, "ledger:record_sale", sale, map[string]any{
		"product_id": sale.ProductID,
		"quantity":   sale.Quantity,
	})
	s.bump(ctx)
	return sale, nil
}

// SoftDeleteSale returns the sale's quantity to stock and marks the sale
// deleted. The increment cannot fail a stock check, so no lock-read is needed,
// but the update stays relative to avoid lost updates.
func (s *Service) SoftDeleteSale(ctx context.Context, saleID int64) (Sale, error) {
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if !sale.Active() {
			return ErrInvalidState
		}
		if err := tx.AdjustStock(ctx, sale.ProductID, sale.Quantity); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.MarkSaleDeleted(ctx, sale.ID, now); err != nil {
			return err
		}
		sale.Status = SaleStatusSoftDeleted
		sale.DeletedAt = &now
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	s.recordAudit(ctx, "ledger:soft_delete_sale", sale, map[string]any{
		"product_id": sale.ProductID,
		"quantity":   sale.Quantity,
	})
	s.bump(ctx)
	return sale, nil
}

// RestoreSale re-validates stock under the product lock before reactivating a
// soft-deleted sale. Stock may have been consumed by newer sales, so the check
// is deliberate and must not be skipped.
func (s *Service) RestoreSale(ctx context.Context, saleID int64) (Sale, error) {
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Active() {
			return ErrInvalidState
		}
		row, err := tx.GetProductForUpdate(ctx, sale.ProductID)
		if err != nil {
			return err
		}
		if sale.Quantity > row.Stock {
			return &InsufficientStockError{ProductID: sale.ProductID, Requested: sale.Quantity, CurrentStock: row.Stock}
		}
		if err := tx.AdjustStock(ctx, sale.ProductID, -sale.Quantity); err != nil {
			return err
		}
		if err := tx.MarkSaleRestored(ctx, sale.ID); err != nil {
			return err
		}
		sale.Status = SaleStatusActive
		sale.DeletedAt = nil
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	s.recordAudit(ctx, "ledger:restore_sale", sale, map[string]any{
		"product_id": sale.ProductID,
		"quantity":   sale.Quantity,
	})
	s.bump(ctx)
	return sale, nil
}

// PurgeSale permanently removes a soft-deleted sale. The stock effect was
// already reversed at soft-delete time, so the row delete is the only write.
// Active sales are rejected to keep the restoration step mandatory.
func (s *Service) PurgeSale(ctx context.Context, saleID int64) error {
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Active() {
			return ErrInvalidState
		}
		return tx.DeleteSale(ctx, sale.ID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, "ledger:purge_sale", sale, map[string]any{
		"product_id": sale.ProductID,
	})
	s.bump(ctx)
	return nil
}

// UpdateSaleDetails edits the non-stock fields of an active sale. Quantity is
// deliberately not editable: changing it would bypass the stock check.
func (s *Service) UpdateSaleDetails(ctx context.Context, saleID int64, input SaleDetailsInput) (Sale, error) {
	if input.PriceAtSale < 0 || input.ActualReceived < 0 {
		return Sale{}, ErrInvalidPrice
	}
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if !sale.Active() {
			return ErrInvalidState
		}
		details := input
		if details.SoldAt.IsZero() {
			details.SoldAt = sale.SoldAt
		}
		if details.ActualReceived <= 0 {
			details.ActualReceived = details.PriceAtSale
		}
		if err := tx.UpdateSaleDetails(ctx, sale.ID, details); err != nil {
			return err
		}
		sale.PriceAtSale = details.PriceAtSale
		sale.ActualReceived = details.ActualReceived
		sale.DiscountPercent = details.DiscountPercent
		sale.Note = details.Note
		sale.SoldAt = details.SoldAt
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	s.recordAudit(ctx, "ledger:update_sale", sale, nil)
	s.bump(ctx)
	return sale, nil
}

// DeleteProduct removes a product. When dependent sales block the delete, they
// are removed first in one transaction with the product. No stock
// reconciliation happens: the product is disappearing either way.
func (s *Service) DeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return ErrProductNotFound
	}
	err := s.repo.DeleteProductDirect(ctx, productID)
	if errors.Is(err, ErrProductReferenced) {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if _, err := tx.DeleteSalesForProduct(ctx, productID); err != nil {
				return err
			}
			return tx.DeleteProduct(ctx, productID)
		})
	}
	if err != nil {
		return err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "ledger:delete_product",
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", productID),
		})
	}
	s.bump(ctx)
	return nil
}

// GetSale reads a sale by id outside of any transaction.
func (s *Service) GetSale(ctx context.Context, saleID int64) (Sale, error) {
	if saleID <= 0 {
		return Sale{}, ErrSaleNotFound
	}
	return s.repo.GetSaleByID(ctx, saleID)
}

func (s *Service) recordAudit(ctx context.Context, action string, sale Sale, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "sale",
		EntityID: fmt.Sprintf("%d", sale.ID),
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper == nil {
		return
	}
	_ = s.bumper.Bump(ctx)
}
