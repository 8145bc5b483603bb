package users

import "strings"

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
	minCodeLength  = 4
	maxCodeLength  = 8
)

// Identity is the authenticated user's profile as returned by the remote API.
// A partial Identity (ID and Phone only) is available immediately after code
// verification; the full copy arrives with the next profile lookup.
type Identity struct {
	ID          string `json:"id"`                     // Unique identifier for the user
	Phone       string `json:"phone"`                  // E.164 phone number used to log in
	DisplayName string `json:"display_name,omitempty"` // Optional human readable name
	TenantID    string `json:"tenant_id,omitempty"`    // Organization the user belongs to, empty until onboarded
}

// HasTenant reports whether the identity is already associated with a tenant.
func (i *Identity) HasTenant() bool {
	return i != nil && i.TenantID != ""
}

// Name returns the display name, falling back to the phone number.
func (i *Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Phone
}

// NormalizePhone strips the separators people commonly type into phone numbers
// ("+420 123-456 789" -> "+420123456789").
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch r {
		case ' ', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidatePhone checks that phone is an E.164 number:
// - starts with '+'
// - followed by 7 to 15 digits, the first of which is not zero
func ValidatePhone(phone string) error {
	phone = NormalizePhone(phone)
	if phone == "" {
		return newValidationError("phone", ErrInvalidPhone, "phone number is required")
	}
	if phone[0] != '+' {
		return newValidationError("phone", ErrInvalidPhone, "phone number must start with a country code, e.g. +420")
	}

	digits := phone[1:]
	if !asciiDigits(digits) {
		return newValidationError("phone", ErrInvalidPhone, "phone number may only contain digits")
	}
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return newValidationError("phone", ErrInvalidPhone, "phone number must have between 7 and 15 digits")
	}
	if digits[0] == '0' {
		return newValidationError("phone", ErrInvalidPhone, "country code cannot start with 0")
	}
	return nil
}

// ValidateCode checks a one-time verification code entered by the user.
func ValidateCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return newValidationError("code", ErrInvalidCode, "verification code is required")
	}
	if !asciiDigits(code) {
		return newValidationError("code", ErrInvalidCode, "verification code may only contain digits")
	}
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return newValidationError("code", ErrInvalidCode, "verification code must be between 4 and 8 digits")
	}
	return nil
}

// asciiDigits reports whether s consists of 0-9 only, so its byte length is its
// digit count.
func asciiDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
