package reports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange flags a history or series filter whose bounds are inverted.
var ErrInvalidRange = errors.New("reports: from is after to")

// HistoryReport is the full history payload: per-sale entries with derived
// money figures plus the range totals.
type HistoryReport struct {
	Entries []HistoryEntry `json:"entries"`
	Summary Summary        `json:"summary"`
}

// Service computes the read-side reports over the sales ledger.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService constructs Service. The cache may be nil; reports are then
// computed on every call.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// History lists active sales in the window, newest first, with derived fields
// and totals. Zero bounds mean unbounded.
func (s *Service) History(ctx context.Context, filter HistoryFilter) (HistoryReport, error) {
	filter = normalizeHistoryFilter(filter)
	if err := checkRange(filter.From, filter.To); err != nil {
		return HistoryReport{}, err
	}

	key, err := s.cache.BuildKey(ctx, keyHistory(filter)...)
	if err != nil {
		return HistoryReport{}, err
	}
	var report HistoryReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		return s.buildHistory(ctx, filter)
	})
	return report, err
}

// Deleted lists soft-deleted sales, most recently deleted first. Never cached:
// the listing backs the restore/purge workflow and must be current.
func (s *Service) Deleted(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.repo.DeletedSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("reports: load deleted sales: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	return entries, nil
}

// Series aggregates active sales into day or month buckets with range totals.
func (s *Service) Series(ctx context.Context, filter SeriesFilter) (Series, error) {
	if filter.Granularity != GranularityMonth {
		filter.Granularity = GranularityDay
	}
	filter.From = dayStart(filter.From)
	filter.To = dayEnd(filter.To)
	if err := checkRange(filter.From, filter.To); err != nil {
		return Series{}, err
	}

	key, err := s.cache.BuildKey(ctx, keySeries(filter)...)
	if err != nil {
		return Series{}, err
	}
	var series Series
	err = s.cache.FetchJSON(ctx, key, &series, func(ctx context.Context) (interface{}, error) {
		return s.buildSeries(ctx, filter)
	})
	return series, err
}

func (s *Service) buildHistory(ctx context.Context, filter HistoryFilter) (HistoryReport, error) {
	rows, err := s.repo.History(ctx, filter)
	if err != nil {
		return HistoryReport{}, fmt.Errorf("reports: load history: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	return HistoryReport{Entries: entries, Summary: summarize(entries)}, nil
}

func (s *Service) buildSeries(ctx context.Context, filter SeriesFilter) (Series, error) {
	rows, err := s.repo.Series(ctx, filter)
	if err != nil {
		return Series{}, fmt.Errorf("reports: load series: %w", err)
	}
	series := Series{Granularity: filter.Granularity, Points: make([]SeriesPoint, 0, len(rows))}
	for _, row := range rows {
		series.Points = append(series.Points, SeriesPoint{
			Label:  filter.Granularity.Label(row.Period),
			Amount: row.Amount,
			Qty:    row.Qty,
		})
		series.Totals.Amount += row.Amount
		series.Totals.Qty += row.Qty
		series.Totals.CountSales += row.Count
	}
	return series, nil
}

// normalizeHistoryFilter widens date-only bounds to whole days so a filter for
// 2026-03-01..2026-03-01 covers that full day.
func normalizeHistoryFilter(filter HistoryFilter) HistoryFilter {
	filter.From = dayStart(filter.From)
	filter.To = dayEnd(filter.To)
	return filter
}

func dayStart(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}

func checkRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return ErrInvalidRange
	}
	return nil
}
