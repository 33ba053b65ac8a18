package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationFailed   = "validation_failed"
	codeProductNotFound    = "product_not_found"
	codeInsufficientStock  = "insufficient_stock"
	codeHoldInvalid        = "hold_invalid"
	codeInvalidPayload     = "invalid_webhook_payload"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code"`
	Messages map[string]string `json:"messages,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorWithMessages(w, status, code, msg, nil)
}

func writeErrorWithMessages(w http.ResponseWriter, status int, code, msg string, messages map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:    msg,
		Code:     code,
		Messages: messages,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
