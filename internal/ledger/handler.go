package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shoplite/shoplite/internal/platform/httpx"
	"github.com/shoplite/shoplite/internal/shared"
)

// Handler exposes the sale lifecycle over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes attaches sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.record)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.softDelete)
	r.Post("/{id}/restore", h.restore)
	r.Delete("/{id}/purge", h.purge)
}

// DeleteProduct removes a product with its destructive sale cascade. Mounted
// on the products route by the router so the cascade policy stays here.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordSaleRequest struct {
	ProductID       int64      `json:"product_id" validate:"required,gt=0"`
	Quantity        int64      `json:"quantity" validate:"required,gte=1"`
	PriceAtSale     float64    `json:"price_at_sale" validate:"gte=0"`
	ActualReceived  float64    `json:"actual_received" validate:"gte=0"`
	DiscountPercent float64    `json:"discount_percent" validate:"gte=0,lte=100"`
	Note            string     `json:"note" validate:"max=200"`
	SoldAt          *time.Time `json:"sold_at"`
	RequestID       string     `json:"request_id"`
}

type updateSaleRequest struct {
	PriceAtSale     float64    `json:"price_at_sale" validate:"gte=0"`
	ActualReceived  float64    `json:"actual_received" validate:"gte=0"`
	DiscountPercent float64    `json:"discount_percent" validate:"gte=0,lte=100"`
	Note            string     `json:"note" validate:"max=200"`
	SoldAt          *time.Time `json:"sold_at"`
}

type saleResponse struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"product_id"`
	Quantity        int64      `json:"quantity"`
	PriceAtSale     float64    `json:"price_at_sale"`
	ActualReceived  float64    `json:"actual_received"`
	DiscountPercent float64    `json:"discount_percent"`
	Note            string     `json:"note,omitempty"`
	SoldAt          time.Time  `json:"sold_at"`
	Status          SaleStatus `json:"status"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// insufficientStockProblem extends RFC7807 with the stock seen under lock so
// the caller can show the shortfall.
type insufficientStockProblem struct {
	httpx.ProblemDetail
	CurrentStock int64 `json:"current_stock"`
}

func toSaleResponse(sale Sale) saleResponse {
	return saleResponse{
		ID:              sale.ID,
		ProductID:       sale.ProductID,
		Quantity:        sale.Quantity,
		PriceAtSale:     sale.PriceAtSale,
		ActualReceived:  sale.ActualReceived,
		DiscountPercent: sale.DiscountPercent,
		Note:            sale.Note,
		SoldAt:          sale.SoldAt,
		Status:          sale.Status,
		DeletedAt:       sale.DeletedAt,
	}
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := SaleInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		PriceAtSale:     req.PriceAtSale,
		ActualReceived:  req.ActualReceived,
		DiscountPercent: req.DiscountPercent,
		Note:            req.Note,
		RequestID:       req.RequestID,
	}
	if req.SoldAt != nil {
		input.SoldAt = *req.SoldAt
	}

	sale, err := h.service.RecordSale(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSaleResponse(sale))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	var req updateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := SaleDetailsInput{
		PriceAtSale:     req.PriceAtSale,
		ActualReceived:  req.ActualReceived,
		DiscountPercent: req.DiscountPercent,
		Note:            req.Note,
	}
	if req.SoldAt != nil {
		input.SoldAt = *req.SoldAt
	}

	sale, err := h.service.UpdateSaleDetails(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.SoftDeleteSale(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.RestoreSale(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	if err := h.service.PurgeSale(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.JSON(w, http.StatusConflict, insufficientStockProblem{
			ProblemDetail: httpx.ProblemDetail{
				Title:  "Insufficient Stock",
				Status: http.StatusConflict,
				Detail: stockErr.Error(),
			},
			CurrentStock: stockErr.CurrentStock,
		})
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
