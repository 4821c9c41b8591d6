package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	history      []HistoryRow
	deleted      []HistoryRow
	series       []SeriesRow
	historyCalls int
}

func (r *fakeRepo) History(ctx context.Context, filter HistoryFilter) ([]HistoryRow, error) {
	r.historyCalls++
	return r.history, nil
}

func (r *fakeRepo) DeletedSales(ctx context.Context) ([]HistoryRow, error) {
	return r.deleted, nil
}

func (r *fakeRepo) Series(ctx context.Context, filter SeriesFilter) ([]SeriesRow, error) {
	return r.series, nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func sampleRow() HistoryRow {
	return HistoryRow{
		SaleID:          1,
		ProductID:       7,
		ProductName:     "Wool Beanie",
		ProductPrice:    100,
		ProductCost:     60,
		Quantity:        3,
		PriceAtSale:     100,
		ActualReceived:  90,
		DiscountPercent: 10,
		SoldAt:          time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestDerivedFields(t *testing.T) {
	entry := toEntry(sampleRow())

	require.InDelta(t, 10.0, entry.Commission, 1e-9)
	require.InDelta(t, 10.0, entry.CommissionPct, 1e-9)
	require.InDelta(t, 10.0, entry.DiscountAmount, 1e-9)
	require.InDelta(t, 90.0, entry.DiscountedPrice, 1e-9)
	require.InDelta(t, 90.0, entry.Profit, 1e-9, "(90-60)*3")
	require.InDelta(t, 50.0, entry.ProfitPct, 1e-9)
}

func TestDerivedFieldZeroGuards(t *testing.T) {
	row := sampleRow()
	row.PriceAtSale = 0
	row.ProductCost = 0
	entry := toEntry(row)

	require.Zero(t, entry.CommissionPct)
	require.Zero(t, entry.ProfitPct)
}

func TestHistorySummary(t *testing.T) {
	repo := &fakeRepo{history: []HistoryRow{sampleRow(), sampleRow()}}
	svc := NewService(repo, nil)

	report, err := svc.History(context.Background(), HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)
	require.Equal(t, int64(6), report.Summary.TotalQty)
	require.InDelta(t, 600.0, report.Summary.TotalRevenue, 1e-9)
	require.InDelta(t, 180.0, report.Summary.TotalProfit, 1e-9)
	require.InDelta(t, 20.0, report.Summary.TotalCommission, 1e-9)
	require.InDelta(t, 20.0, report.Summary.TotalDiscount, 1e-9)
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	_, err := svc.History(context.Background(), HistoryFilter{
		From: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestHistoryCachedUntilBump(t *testing.T) {
	repo := &fakeRepo{history: []HistoryRow{sampleRow()}}
	cache := testCache(t)
	svc := NewService(repo, cache)
	ctx := context.Background()

	first, err := svc.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)
	require.Equal(t, 1, repo.historyCalls)

	repo.history = append(repo.history, sampleRow())
	cached, err := svc.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, cached.Entries, 1, "served from cache")
	require.Equal(t, 1, repo.historyCalls)

	require.NoError(t, cache.Bump(ctx))

	fresh, err := svc.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, fresh.Entries, 2)
	require.Equal(t, 2, repo.historyCalls)
}

func TestSeriesTotalsAndLabels(t *testing.T) {
	repo := &fakeRepo{series: []SeriesRow{
		{Period: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Amount: 300, Qty: 3, Count: 2},
		{Period: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Amount: 150, Qty: 1, Count: 1},
	}}
	svc := NewService(repo, nil)

	series, err := svc.Series(context.Background(), SeriesFilter{})
	require.NoError(t, err)
	require.Equal(t, GranularityDay, series.Granularity)
	require.Len(t, series.Points, 2)
	require.Equal(t, "2026-03-01", series.Points[0].Label)
	require.InDelta(t, 450.0, series.Totals.Amount, 1e-9)
	require.Equal(t, int64(4), series.Totals.Qty)
	require.Equal(t, int64(3), series.Totals.CountSales)

	monthly, err := svc.Series(context.Background(), SeriesFilter{Granularity: GranularityMonth})
	require.NoError(t, err)
	require.Equal(t, "2026-03", monthly.Points[0].Label)
}

func TestDeletedListing(t *testing.T) {
	deletedAt := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	row := sampleRow()
	row.DeletedAt = &deletedAt
	repo := &fakeRepo{deleted: []HistoryRow{row}}
	svc := NewService(repo, testCache(t))

	entries, err := svc.Deleted(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].DeletedAt)
	require.InDelta(t, 90.0, entries[0].Profit, 1e-9)
}

func TestWriteHistoryXLSX(t *testing.T) {
	repo := &fakeRepo{history: []HistoryRow{sampleRow()}}
	svc := NewService(repo, nil)

	report, err := svc.History(context.Background(), HistoryFilter{})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteHistoryXLSX(buf, report))
	require.NotZero(t, buf.Len())
	// XLSX files are zip archives.
	require.Equal(t, []byte{'P', 'K'}, buf.Bytes()[:2])
}
