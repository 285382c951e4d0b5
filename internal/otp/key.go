package otp

import (
	"fmt"
	"regexp"
	"strings"
)

// Supported delivery channels
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

var (
	// E.164-style phone: optional +, 10-15 digits
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Key builds the composite ledger key "{channel}_{contact}_{purpose}"
func Key(channel, contact, purpose string) string {
	return channel + "_" + contact + "_" + purpose
}

// ParseKey splits a composite key back into channel, contact and purpose.
// The contact may itself contain underscores (email local parts), so the
// channel is everything before the first underscore and the purpose is
// everything after the last one.
func ParseKey(key string) (channel, contact, purpose string, err error) {
	first := strings.Index(key, "_")
	last := strings.LastIndex(key, "_")
	if first < 0 || first == last {
		return "", "", "", fmt.Errorf("malformed otp identifier %q", key)
	}
	channel = key[:first]
	contact = key[first+1 : last]
	purpose = key[last+1:]
	if channel == "" || contact == "" || purpose == "" {
		return "", "", "", fmt.Errorf("malformed otp identifier %q", key)
	}
	if channel != ChannelSMS && channel != ChannelEmail {
		return "", "", "", fmt.Errorf("unknown otp channel %q", channel)
	}
	return channel, contact, purpose, nil
}

// ValidateContact rejects malformed contacts before any entry is created.
// This is a validation failure, distinct from the verify outcome taxonomy.
func ValidateContact(channel, contact string) error {
	switch channel {
	case ChannelSMS:
		if !phonePattern.MatchString(contact) {
			return fmt.Errorf("invalid phone number format")
		}
	case ChannelEmail:
		if !emailPattern.MatchString(contact) {
			return fmt.Errorf("invalid email format")
		}
	default:
		return fmt.Errorf("unknown otp channel %q", channel)
	}
	return nil
}
