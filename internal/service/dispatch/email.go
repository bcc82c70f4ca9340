package dispatch

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
)

// Recipient addresses must look like local@domain.tld; the trailing
// TLD segment is required, so "a@b" is rejected even though it is a
// technically deliverable address.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	return emailPattern.MatchString(email) && govalidator.IsEmail(email)
}
