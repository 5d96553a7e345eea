package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	// Fallback for addresses mail.ParseAddress rejects but common senders emit
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9@._-]+$`)
)

const (
	maxEmailLength   = 320 // RFC 5321
	maxSubjectLength = 998 // RFC 5322
	maxBodyLength    = 25 * 1024 * 1024
	maxRecipients    = 100
	maxUserIDLength  = 255
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email address cannot be empty")
	}

	if len(email) > maxEmailLength {
		return fmt.Errorf("email address too long (max %d characters)", maxEmailLength)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		if !emailRegex.MatchString(email) {
			return fmt.Errorf("invalid email format: %s", email)
		}
	}

	// Check for header injection
	if strings.ContainsAny(email, "\r\n") {
		return fmt.Errorf("email contains illegal characters (CRLF)")
	}

	return nil
}

// ValidateEmailList validates a list of email addresses
func ValidateEmailList(emails []string) error {
	if len(emails) == 0 {
		return fmt.Errorf("at least one email address is required")
	}

	if len(emails) > maxRecipients {
		return fmt.Errorf("too many recipients (max %d)", maxRecipients)
	}

	seen := make(map[string]bool)
	for _, email := range emails {
		normalized := strings.TrimSpace(strings.ToLower(email))
		if seen[normalized] {
			return fmt.Errorf("duplicate email address: %s", email)
		}
		seen[normalized] = true

		if err := ValidateEmail(email); err != nil {
			return fmt.Errorf("invalid email in list: %w", err)
		}
	}

	return nil
}

// ValidateOptionalEmailList validates cc/bcc lists, which may be empty.
func ValidateOptionalEmailList(emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	return ValidateEmailList(emails)
}

// ValidateSubject validates an email subject
func ValidateSubject(subject string) error {
	if len(subject) > maxSubjectLength {
		return fmt.Errorf("subject too long (max %d characters)", maxSubjectLength)
	}

	// Check for header injection
	if strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("subject contains illegal characters (CRLF)")
	}

	return nil
}

// ValidateBody validates email body content
func ValidateBody(body string) error {
	if body == "" {
		return fmt.Errorf("body cannot be empty")
	}

	if len(body) > maxBodyLength {
		return fmt.Errorf("body too large (max %d bytes)", maxBodyLength)
	}

	if strings.Contains(body, "\x00") {
		return fmt.Errorf("body contains null bytes")
	}

	return nil
}

// ValidateUserID validates a tenant identifier. IDs appear in secret names and
// URL paths, so the character set stays conservative.
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if len(id) > maxUserIDLength {
		return fmt.Errorf("user ID too long (max %d characters)", maxUserIDLength)
	}

	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user ID format")
	}

	return nil
}
