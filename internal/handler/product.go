package handler

import (
	"net/http"

	"github.com/kofiasare/makola/internal/domain/catalog"
)

type productImageDTO struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

type productDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    float64         `json:"price"`
	Category string          `json:"category"`
	VendorID string          `json:"vendorId"`
	Image    productImageDTO `json:"image"`
}

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = h.productToDTO(p)
	}
	respondJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), productID(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.productToDTO(*p))
}

// productToDTO converts a domain product into its wire shape. Image paths
// are prefixed with the configured imageBaseURL.
func (h *Handler) productToDTO(p catalog.Product) productDTO {
	base := h.imageBaseURL
	return productDTO{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		Category: p.Category,
		VendorID: p.VendorID,
		Image: productImageDTO{
			Thumbnail: base + p.Image.Thumbnail,
			Mobile:    base + p.Image.Mobile,
			Tablet:    base + p.Image.Tablet,
			Desktop:   base + p.Image.Desktop,
		},
	}
}
