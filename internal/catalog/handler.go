package catalog

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

// Handler exposes the product catalog over JSON. Product deletion is not
// mounted here: it cascades through the ledger, which owns that route.
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

// MountRoutes attaches product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
}

type productRequest struct {
	Name   string  `json:"name" validate:"required,max=200"`
	SKU    string  `json:"sku" validate:"max=100"`
	Price  float64 `json:"price" validate:"gte=0"`
	Cost   float64 `json:"cost" validate:"gte=0"`
	Stock  int64   `json:"stock" validate:"gte=0"`
	Colors string  `json:"colors" validate:"max=255"`
	Image  string  `json:"image"`
}

type productResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku,omitempty"`
	Price      float64   `json:"price"`
	Cost       float64   `json:"cost"`
	Stock      int64     `json:"stock"`
	Colors     string    `json:"colors,omitempty"`
	ColorsList []string  `json:"colors_list,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type listResponse struct {
	Products   []productResponse `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		SKU:        p.SKU,
		Price:      p.Price,
		Cost:       p.Cost,
		Stock:      p.Stock,
		Colors:     p.Colors,
		ColorsList: p.ColorsList(),
		Image:      p.Image,
		CreatedAt:  p.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	filters := ListFilters{
		Search:  r.URL.Query().Get("q"),
		Page:    page,
		ShowAll: r.URL.Query().Get("all") == "true",
	}

	products, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := listResponse{
		Products:   make([]productResponse, 0, len(products)),
		Pagination: shared.NewPagination(filters.Page, filters.PerPage, total),
	}
	for _, p := range products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	product, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), product)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	product, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), id, product)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(updated))
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (Product, bool) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return Product{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Product{}, false
	}
	return Product{
		Name:   req.Name,
		SKU:    req.SKU,
		Price:  req.Price,
		Cost:   req.Cost,
		Stock:  req.Stock,
		Colors: req.Colors,
		Image:  req.Image,
	}, true
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateSKU):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidProduct):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("catalog operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
