package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplite/shoplite/internal/reports"
	"github.com/shoplite/shoplite/internal/shared"
)

// NewReportWarmupHandler re-computes the unbounded history report and the
// recent day series so the first dashboard hit after an invalidation is warm.
func NewReportWarmupHandler(logger *slog.Logger, svc *reports.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReportWarmupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Days <= 0 {
			payload.Days = 30
		}

		if _, err := svc.History(ctx, reports.HistoryFilter{}); err != nil {
			return err
		}
		from := time.Now().UTC().AddDate(0, 0, -payload.Days)
		if _, err := svc.Series(ctx, reports.SeriesFilter{Granularity: reports.GranularityDay, From: from}); err != nil {
			return err
		}
		logger.Info("report caches warmed", slog.Int("days", payload.Days))
		return nil
	}
}

// NewLowStockScanHandler logs products at or below the configured threshold.
func NewLowStockScanHandler(logger *slog.Logger, pool *pgxpool.Pool) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Threshold <= 0 {
			payload.Threshold = 3
		}

		rows, err := pool.Query(ctx, `SELECT id, name, stock FROM products WHERE stock <= $1 ORDER BY stock ASC`, payload.Threshold)
		if err != nil {
			return err
		}
		defer rows.Close()

		flagged := 0
		for rows.Next() {
			var (
				id    int64
				name  string
				stock int64
			)
			if err := rows.Scan(&id, &name, &stock); err != nil {
				return err
			}
			flagged++
			logger.Warn("low stock",
				slog.Int64("product_id", id),
				slog.String("name", name),
				slog.Int64("stock", stock))
		}
		if err := rows.Err(); err != nil {
			return err
		}
		logger.Info("low stock scan finished",
			slog.Int64("threshold", payload.Threshold),
			slog.Int("flagged", flagged))
		return nil
	}
}

// NewIdempotencyCleanupHandler evicts idempotency keys past retention.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *shared.IdempotencyStore) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.OlderThan <= 0 {
			payload.OlderThan = 24 * time.Hour
		}
		if err := store.Cleanup(ctx, payload.OlderThan); err != nil {
			return err
		}
		logger.Info("idempotency keys cleaned", slog.Duration("older_than", payload.OlderThan))
		return nil
	}
}
