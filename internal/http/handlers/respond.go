package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fraudshield/server/internal/delivery"
)

// Machine-checkable error codes. Clients branch on code, never on the
// human-readable message.
const (
	CodeInvalidRequest     = "invalid-request"
	CodeDuplicateIdentity  = "duplicate-identity"
	CodeInvalidCredentials = "invalid-credentials"
	CodeNoSuchIdentity     = "no-such-identity"
	CodeInvalidResetToken  = "invalid-or-expired-token"
	CodeBadContactFormat   = "bad-contact-format"
	CodeDeliveryFailed     = "delivery-failed"
	CodeRateLimited        = "rate-limited"
	CodeInternal           = "internal-error"
)

// errorBody is the uniform failure shape: {"error": <message>, "code": <code>}
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondJSON writes a JSON response with the given status
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondError writes a structured error with a machine-checkable code
func respondError(w http.ResponseWriter, statusCode int, message, code string) {
	respondJSON(w, statusCode, errorBody{Error: message, Code: code})
}

// logMasked logs with the contact masked; codes and plaintext contacts never
// reach the logs.
func logMasked(contact, msg string, err error) {
	log.Printf("contact %s: %s: %v", delivery.MaskContact(contact), msg, err)
}
