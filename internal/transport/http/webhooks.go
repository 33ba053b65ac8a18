package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/MohamedH1000/GetPayIn/internal/app"
	"github.com/MohamedH1000/GetPayIn/internal/domain"
	"github.com/shopspring/decimal"
)

// WebhookProcessor is the minimal interface needed to apply payment events.
type WebhookProcessor interface {
	Process(ctx context.Context, in app.ProcessInput) (app.ProcessResult, error)
}

// HandlePaymentWebhook ingests external payment events. Senders deliver
// at least once; a 500 response means the event was not applied and must be
// redelivered.
func HandlePaymentWebhook(svc WebhookProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPayload, "invalid webhook payload")
			return
		}

		var req webhookRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidPayload, "invalid webhook payload")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeErrorWithMessages(w, http.StatusBadRequest, codeInvalidPayload, "invalid webhook payload", formatValidationError(err))
			return
		}

		in := app.ProcessInput{
			PaymentID:      req.PaymentID,
			OrderID:        req.OrderID,
			Status:         domain.WebhookStatus(req.Status),
			IdempotencyKey: req.IdempotencyKey,
			Payload:        body,
		}
		if req.Amount != nil {
			amount := decimal.NewFromFloat(*req.Amount)
			in.Amount = &amount
		}

		res, err := svc.Process(r.Context(), in)
		if err != nil {
			// Includes unresolvable order references: the whole unit aborted,
			// nothing was persisted, and the sender must retry later.
			writeError(w, http.StatusInternalServerError, codeInternalError, "failed to process webhook")
			return
		}

		writeJSON(w, http.StatusOK, webhookResponse{
			Message:        res.Message,
			IdempotencyKey: res.IdempotencyKey,
			PaymentID:      res.PaymentID,
			OrderStatus:    string(res.OrderStatus),
		})
	}
}

type webhookRequest struct {
	PaymentID      string   `json:"payment_id" validate:"required,max=255"`
	OrderID        string   `json:"order_id" validate:"required,uuid4"`
	Status         string   `json:"status" validate:"required,oneof=success failure"`
	IdempotencyKey string   `json:"idempotency_key" validate:"required,max=255"`
	Amount         *float64 `json:"amount" validate:"omitempty,gte=0"`
}

type webhookResponse struct {
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotency_key"`
	PaymentID      string `json:"payment_id"`
	OrderStatus    string `json:"order_status"`
}
