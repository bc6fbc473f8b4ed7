package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/southsidewear/storefront/internal/catalog"
)

type ProductHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewProductHandler(c *catalog.Catalog, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		logger:  logger,
	}
}

type ProductView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Price     int64    `json:"price"`
	PriceText string   `json:"price_text"`
	Sizes     []string `json:"sizes,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price,
			PriceText: catalog.FormatPrice(p.Price),
			Sizes:     p.Sizes,
			ImageURL:  p.ImageURL,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductView{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		PriceText: catalog.FormatPrice(p.Price),
		Sizes:     p.Sizes,
		ImageURL:  p.ImageURL,
	})
}
