package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/app"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
)

// OrderCreator is the minimal interface needed to create an order.
type OrderCreator interface {
	CreateFromHold(ctx context.Context, holdID string) (app.CreateOrderResult, error)
}

// HandleCreateOrder returns an HTTP handler converting a hold into an
// order. Repeated calls with the same hold_id return the same order.
func HandleCreateOrder(svc OrderCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createOrderRequest
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

		res, err := svc.CreateFromHold(r.Context(), req.HoldID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrHoldInvalid), errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusGone, codeHoldInvalid, "the specified hold is no longer valid or has expired")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, orderResponse{
			OrderID:     res.Order.ID,
			ProductID:   res.Order.ProductID,
			Quantity:    res.Order.Quantity,
			TotalAmount: res.Order.TotalAmount.StringFixed(2),
			Status:      string(res.Order.Status),
			CreatedAt:   res.Order.CreatedAt,
			PaymentID:   res.Order.PaymentID,
		})
	}
}

type createOrderRequest struct {
	HoldID string `json:"hold_id" validate:"required,uuid4"`
}

type orderResponse struct {
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	PaymentID   *string   `json:"payment_id"`
}
