package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fraudshield/server/internal/delivery"
	"github.com/fraudshield/server/internal/middleware"
	"github.com/fraudshield/server/internal/otp"
)

// OTPHandler handles the OTP send/verify/resend/status/cleanup endpoints
type OTPHandler struct {
	ledger        *otp.Ledger
	senders       map[string]delivery.Sender
	sendLimiter   *middleware.RateLimiter
	verifyLimiter *middleware.RateLimiter
	devMode       bool
}

// NewOTPHandler creates a new OTP handler. In dev mode the issued code is
// echoed in the send/resend responses so clients can test without a real
// delivery channel.
func NewOTPHandler(ledger *otp.Ledger, senders map[string]delivery.Sender, devMode bool) *OTPHandler {
	// Per-IP limits: 10 sends and 20 verifies per 10 minutes
	return &OTPHandler{
		ledger:        ledger,
		senders:       senders,
		sendLimiter:   middleware.NewRateLimiter(10*time.Minute, 10),
		verifyLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
		devMode:       devMode,
	}
}

// sendOTPRequest is the request body for POST /otp/send
type sendOTPRequest struct {
	Channel string `json:"channel"`
	Contact string `json:"contact"`
	Purpose string `json:"purpose"`
}

// sendOTPResponse is returned by send and resend
type sendOTPResponse struct {
	Message    string `json:"message"`
	Identifier string `json:"identifier"`
	Purpose    string `json:"purpose"`
	ExpiresIn  int    `json:"expires_in"`
	DevCode    string `json:"dev_code,omitempty"`
}

// HandleSend handles POST /otp/send
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.Channel = strings.TrimSpace(req.Channel)
	req.Contact = strings.TrimSpace(req.Contact)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if req.Channel == "" || req.Contact == "" || req.Purpose == "" {
		respondError(w, http.StatusBadRequest, "channel, contact and purpose are required", CodeInvalidRequest)
		return
	}

	if err := otp.ValidateContact(req.Channel, req.Contact); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), CodeBadContactFormat)
		return
	}

	if !h.sendLimiter.Allow(middleware.GetIPKey(r)) {
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded", CodeRateLimited)
		return
	}

	code, err := h.ledger.Issue(r.Context(), req.Channel, req.Contact, req.Purpose)
	if err != nil {
		logMasked(req.Contact, "failed to issue OTP", err)
		respondError(w, http.StatusInternalServerError, "failed to issue OTP", CodeInternal)
		return
	}

	if err := h.deliver(r, req.Channel, req.Contact, code, req.Purpose); err != nil {
		// The entry stays live even though delivery failed; see DESIGN.md.
		logMasked(req.Contact, "failed to deliver OTP", err)
		respondError(w, http.StatusInternalServerError, "failed to deliver OTP", CodeDeliveryFailed)
		return
	}

	resp := sendOTPResponse{
		Message:    "otp_sent",
		Identifier: otp.Key(req.Channel, req.Contact, req.Purpose),
		Purpose:    req.Purpose,
		ExpiresIn:  int(otp.CodeTTL.Seconds()),
	}
	if h.devMode {
		resp.DevCode = code
	}
	respondJSON(w, http.StatusOK, resp)
}

// verifyOTPRequest is the request body for POST /otp/verify
type verifyOTPRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

// HandleVerify handles POST /otp/verify
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	req.Code = strings.TrimSpace(req.Code)
	if req.Identifier == "" || req.Code == "" {
		respondError(w, http.StatusBadRequest, "identifier and code are required", CodeInvalidRequest)
		return
	}

	if !h.verifyLimiter.Allow(middleware.GetIPKey(r)) {
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded", CodeRateLimited)
		return
	}

	outcome, err := h.ledger.Verify(r.Context(), req.Identifier, req.Code)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to verify OTP", CodeInternal)
		return
	}

	switch outcome {
	case otp.OutcomeSuccess:
		respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
	case otp.OutcomeNotFound:
		respondError(w, http.StatusBadRequest, "no OTP found or it has expired", string(otp.OutcomeNotFound))
	case otp.OutcomeExpired:
		respondError(w, http.StatusBadRequest, "OTP has expired", string(otp.OutcomeExpired))
	case otp.OutcomeTooManyAttempts:
		respondError(w, http.StatusBadRequest, "too many failed attempts", string(otp.OutcomeTooManyAttempts))
	default:
		respondError(w, http.StatusBadRequest, "incorrect code", string(otp.OutcomeMismatch))
	}
}

// resendOTPRequest is the request body for POST /otp/resend
type resendOTPRequest struct {
	Identifier string `json:"identifier"`
}

// HandleResend handles POST /otp/resend
func (h *OTPHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", CodeInvalidRequest)
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	channel, contact, purpose, err := otp.ParseKey(req.Identifier)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid identifier", CodeInvalidRequest)
		return
	}
	if err := otp.ValidateContact(channel, contact); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), CodeBadContactFormat)
		return
	}

	if !h.sendLimiter.Allow(middleware.GetIPKey(r)) {
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded", CodeRateLimited)
		return
	}

	code, err := h.ledger.Resend(r.Context(), req.Identifier)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue OTP", CodeInternal)
		return
	}

	if err := h.deliver(r, channel, contact, code, purpose); err != nil {
		logMasked(contact, "failed to deliver OTP", err)
		respondError(w, http.StatusInternalServerError, "failed to deliver OTP", CodeDeliveryFailed)
		return
	}

	resp := sendOTPResponse{
		Message:    "otp_resent",
		Identifier: req.Identifier,
		Purpose:    purpose,
		ExpiresIn:  int(otp.CodeTTL.Seconds()),
	}
	if h.devMode {
		resp.DevCode = code
	}
	respondJSON(w, http.StatusOK, resp)
}

// statusResponse is the advisory view returned by GET /otp/status/{identifier}
type statusResponse struct {
	Exists           bool   `json:"exists"`
	Expired          bool   `json:"expired"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Attempts         int    `json:"attempts"`
	Channel          string `json:"channel,omitempty"`
}

// HandleStatus handles GET /otp/status/{identifier}
func (h *OTPHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if identifier == "" {
		respondError(w, http.StatusBadRequest, "identifier is required", CodeInvalidRequest)
		return
	}

	status, err := h.ledger.Status(r.Context(), identifier)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read OTP status", CodeInternal)
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{
		Exists:           status.Exists,
		Expired:          status.Expired,
		RemainingSeconds: status.RemainingSeconds,
		Attempts:         status.Attempts,
		Channel:          status.Channel,
	})
}

// HandleCleanup handles POST /otp/cleanup
func (h *OTPHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	count, err := h.ledger.Sweep(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clean up OTPs", CodeInternal)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"cleaned_count": count})
}

func (h *OTPHandler) deliver(r *http.Request, channel, contact, code, purpose string) error {
	sender, err := delivery.ForChannel(h.senders, channel)
	if err != nil {
		return err
	}
	return sender.Send(r.Context(), contact, code, purpose)
}
