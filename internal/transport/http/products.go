package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/domain"
)

// ProductReader is the minimal interface needed to show a product.
type ProductReader interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	AvailableStock(ctx context.Context, productID string) (int, error)
}

// HandleGetProduct returns an HTTP handler for the product detail view,
// including availability which may be served a few seconds stale.
func HandleGetProduct(svc ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		productID, ok := parseProductPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInvalidID) {
				writeError(w, http.StatusNotFound, codeProductNotFound, "product not found")
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		available, err := svc.AvailableStock(r.Context(), productID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, productResponse{
			ID:             product.ID,
			Name:           product.Name,
			Description:    product.Description,
			Price:          product.Price.StringFixed(2),
			TotalStock:     product.TotalStock,
			AvailableStock: available,
			UpdatedAt:      product.UpdatedAt,
		})
	}
}

func parseProductPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "products" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type productResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          string    `json:"price"`
	TotalStock     int       `json:"total_stock"`
	AvailableStock int       `json:"available_stock"`
	UpdatedAt      time.Time `json:"updated_at"`
}
