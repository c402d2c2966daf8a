package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ValidateEmail checks basic address shape and, when requiredDomain is
// non-empty, that the address belongs to that domain (exactly or as a
// subdomain). An empty requiredDomain disables the institutional rule.
func ValidateEmail(email, requiredDomain string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address")
	}
	if requiredDomain == "" {
		return nil
	}

	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	want := strings.ToLower(requiredDomain)
	if domain != want && !strings.HasSuffix(domain, "."+want) {
		return fmt.Errorf("email must belong to %s", requiredDomain)
	}
	return nil
}
