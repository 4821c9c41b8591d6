package reports

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/shoplite/shoplite/internal/platform/httpx"
)

// Handler serves the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/history", h.history)
	r.Get("/history/export", h.historyExport)
	r.Get("/deleted", h.deleted)
	r.Get("/series", h.series)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.historyFilter(w, r)
	if !ok {
		return
	}
	report, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) historyExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.historyFilter(w, r)
	if !ok {
		return
	}
	report, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	buf := &bytes.Buffer{}
	if err := WriteHistoryXLSX(buf, report); err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="sales-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) deleted(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Deleted(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) series(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.seriesFilter(w, r)
	if !ok {
		return
	}
	series, err := h.service.Series(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, series)
}

// dashboard bundles the history summary and the daily series in one response,
// loading both concurrently.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	histFilter, ok := h.historyFilter(w, r)
	if !ok {
		return
	}

	var (
		report HistoryReport
		series Series
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		report, err = h.service.History(ctx, histFilter)
		return err
	})
	g.Go(func() error {
		var err error
		series, err = h.service.Series(ctx, SeriesFilter{
			Granularity: GranularityDay,
			From:        histFilter.From,
			To:          histFilter.To,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"summary": report.Summary,
		"series":  series,
	})
}

func (h *Handler) historyFilter(w http.ResponseWriter, r *http.Request) (HistoryFilter, bool) {
	var filter HistoryFilter
	var ok bool
	if filter.From, ok = h.dateParam(w, r, "from"); !ok {
		return HistoryFilter{}, false
	}
	if filter.To, ok = h.dateParam(w, r, "to"); !ok {
		return HistoryFilter{}, false
	}
	return filter, true
}

func (h *Handler) seriesFilter(w http.ResponseWriter, r *http.Request) (SeriesFilter, bool) {
	filter := SeriesFilter{Granularity: Granularity(r.URL.Query().Get("granularity"))}
	var ok bool
	if filter.From, ok = h.dateParam(w, r, "from"); !ok {
		return SeriesFilter{}, false
	}
	if filter.To, ok = h.dateParam(w, r, "to"); !ok {
		return SeriesFilter{}, false
	}
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product_id")
			return SeriesFilter{}, false
		}
		filter.ProductID = id
	}
	return filter, true
}

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name+" date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("report query failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
