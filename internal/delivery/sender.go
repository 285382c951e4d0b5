package delivery

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Sender delivers a one-time code to a contact. Implementations own their
// provider/retry logic; the ledger and handlers only see this interface.
type Sender interface {
	Send(ctx context.Context, contact, code, purpose string) error
}

// SMSSender is a console-backed SMS adapter. A real deployment swaps this for
// a provider-backed implementation; the handler wiring stays the same.
type SMSSender struct{}

// NewSMSSender creates the stub SMS sender
func NewSMSSender() *SMSSender {
	return &SMSSender{}
}

func (s *SMSSender) Send(_ context.Context, contact, code, purpose string) error {
	_ = code // never logged
	log.Printf("SMS to %s: verification code for %s sent", MaskContact(contact), purpose)
	return nil
}

// EmailSender is a console-backed email adapter.
type EmailSender struct{}

// NewEmailSender creates the stub email sender
func NewEmailSender() *EmailSender {
	return &EmailSender{}
}

func (s *EmailSender) Send(_ context.Context, contact, code, purpose string) error {
	_ = code // never logged
	log.Printf("Email to %s: verification code for %s sent", MaskContact(contact), purpose)
	return nil
}

// MaskContact masks a phone number or email for logging (e.g. +1********67,
// jo****@example.com). Codes and full contacts never reach the logs.
func MaskContact(contact string) string {
	if at := strings.Index(contact, "@"); at > 0 {
		local := contact[:at]
		if len(local) <= 2 {
			return "****" + contact[at:]
		}
		return local[:2] + strings.Repeat("*", len(local)-2) + contact[at:]
	}
	if len(contact) <= 4 {
		return "****"
	}
	return contact[:2] + strings.Repeat("*", len(contact)-4) + contact[len(contact)-2:]
}

// ErrUnknownChannel is returned by ForChannel for unsupported channels
var ErrUnknownChannel = fmt.Errorf("unknown delivery channel")

// ForChannel selects the sender for a channel from the given set
func ForChannel(senders map[string]Sender, channel string) (Sender, error) {
	sender, ok := senders[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return sender, nil
}
