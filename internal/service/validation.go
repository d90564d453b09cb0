package service

import (
	"fmt"
	"regexp"

	"github.com/muurk/onvifctl/internal/transport"
)

var (
	// posixTZPattern accepts POSIX 1003.1 zones such as "JST-9" or "EST5EDT".
	posixTZPattern = regexp.MustCompile(`^[A-Z]{3}-?\d{1,2}([A-Z]{3,4})?$`)

	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ValidateTimeZone checks that tz is a POSIX 1003.1 time zone string.
func ValidateTimeZone(tz string) error {
	if !posixTZPattern.MatchString(tz) {
		return transport.NewValidationError(fmt.Sprintf("time zone %q must be a POSIX 1003.1 time zone string", tz))
	}
	return nil
}

// ValidateIPv4 checks that addr is a dotted-quad IPv4 literal.
func ValidateIPv4(addr string) error {
	if !ipv4Pattern.MatchString(addr) {
		return transport.NewValidationError(fmt.Sprintf("address %q is not a valid IPv4 address", addr))
	}
	return nil
}

// ValidatePrefixLength checks an IPv4 prefix length.
func ValidatePrefixLength(n int) error {
	if n < 0 || n > 32 {
		return transport.NewValidationError(fmt.Sprintf("prefix length %d must be between 0 and 32", n))
	}
	return nil
}
