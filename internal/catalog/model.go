package catalog

import (
	"strings"
	"time"
)

// Product represents a catalog item. Stock is owned by the ledger: the
// catalog writes it once at creation and only reads it afterwards.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	Stock     int64     `json:"stock"`
	Colors    string    `json:"colors,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ColorsList splits the comma-joined colors field into trimmed entries.
func (p Product) ColorsList() []string {
	if p.Colors == "" {
		return nil
	}
	parts := strings.Split(p.Colors, ",")
	colors := make([]string, 0, len(parts))
	for _, part := range parts {
		if c := strings.TrimSpace(part); c != "" {
			colors = append(colors, c)
		}
	}
	return colors
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search  string
	Page    int
	PerPage int
	ShowAll bool
}
