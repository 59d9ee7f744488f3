package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameLength  = 100
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
)

// Reason is the single rejection cause reported for a field.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonEmpty      Reason = "empty"
	ReasonNonNumeric Reason = "non_numeric"
	ReasonTooShort   Reason = "too_short"
	ReasonTooLong    Reason = "too_long"
)

// ValidationError reports the first field that failed normalization.
type ValidationError struct {
	Field  string `json:"field"`
	Reason Reason `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Field, e.Message())
}

// Message is the human readable form of the reason.
func (e *ValidationError) Message() string {
	switch e.Reason {
	case ReasonEmpty:
		return "must not be empty"
	case ReasonNonNumeric:
		return "must contain only digits, spaces, dashes and parentheses"
	case ReasonTooShort:
		return fmt.Sprintf("must have at least %d digits", MinPhoneDigits)
	case ReasonTooLong:
		if e.Field == "phone_number" {
			return fmt.Sprintf("must have at most %d digits", MaxPhoneDigits)
		}
		return fmt.Sprintf("must be at most %d characters", MaxNameLength)
	}
	return string(e.Reason)
}

// NormalizeName trims surrounding whitespace and puts the name in NFC form.
func NormalizeName(raw string) (string, Reason) {
	name := norm.NFC.String(strings.TrimSpace(raw))
	if name == "" {
		return "", ReasonEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ReasonTooLong
	}
	return name, ReasonNone
}

// NormalizePhone strips whitespace, dashes and parentheses and returns the
// remaining digits. Non-digit characters are reported before length.
func NormalizePhone(raw string) (string, Reason) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '-' || r == '(' || r == ')' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	phone := b.String()
	if phone == "" {
		return "", ReasonEmpty
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", ReasonNonNumeric
		}
	}
	switch {
	case len(phone) < MinPhoneDigits:
		return "", ReasonTooShort
	case len(phone) > MaxPhoneDigits:
		return "", ReasonTooLong
	}
	return phone, ReasonNone
}

// Candidate holds normalized vendor fields.
type Candidate struct {
	VendorName          string
	ServiceProviderName string
	PhoneNumber         string
}

// Vendor validates all three user supplied fields in order and returns the
// normalized candidate or the first failure.
func Vendor(vendorName, serviceProviderName, phoneNumber string) (Candidate, error) {
	var c Candidate
	var reason Reason

	if c.VendorName, reason = NormalizeName(vendorName); reason != ReasonNone {
		return Candidate{}, &ValidationError{Field: "vendor_name", Reason: reason}
	}
	if c.ServiceProviderName, reason = NormalizeName(serviceProviderName); reason != ReasonNone {
		return Candidate{}, &ValidationError{Field: "service_provider_name", Reason: reason}
	}
	if c.PhoneNumber, reason = NormalizePhone(phoneNumber); reason != ReasonNone {
		return Candidate{}, &ValidationError{Field: "phone_number", Reason: reason}
	}
	return c, nil
}

// Field normalizes a single named field. Unknown fields pass through trimmed.
func Field(field, raw string) (string, error) {
	var (
		value  string
		reason Reason
	)
	switch field {
	case "phone_number":
		value, reason = NormalizePhone(raw)
	case "vendor_name", "service_provider_name":
		value, reason = NormalizeName(raw)
	default:
		return strings.TrimSpace(raw), nil
	}
	if reason != ReasonNone {
		return "", &ValidationError{Field: field, Reason: reason}
	}
	return value, nil
}
