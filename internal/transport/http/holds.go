package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/domain"
)

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, productID string, quantity int) (domain.Hold, error)
}

// HandleCreateHold returns an HTTP handler for reserving product quantity.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeErrorWithMessages(w, http.StatusUnprocessableEntity, codeValidationFailed, "validation failed", formatValidationError(err))
			return
		}

		hold, err := svc.CreateHold(r.Context(), req.ProductID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusNotFound, codeProductNotFound, "product not found")
			case errors.Is(err, domain.ErrInsufficientStock):
				writeError(w, http.StatusConflict, codeInsufficientStock, "insufficient stock available")
			case errors.Is(err, domain.ErrInvalidQuantity):
				writeErrorWithMessages(w, http.StatusUnprocessableEntity, codeValidationFailed, "validation failed",
					map[string]string{"quantity": "quantity is invalid"})
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, createHoldResponse{
			HoldID:    hold.ID,
			HoldToken: hold.Token,
			ExpiresAt: hold.ExpiresAt,
			ProductID: hold.ProductID,
			Quantity:  hold.Quantity,
		})
	}
}

type createHoldRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=10"`
}

type createHoldResponse struct {
	HoldID    string    `json:"hold_id"`
	HoldToken string    `json:"hold_token"`
	ExpiresAt time.Time `json:"expires_at"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
