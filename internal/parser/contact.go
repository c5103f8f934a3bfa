package parser

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidContact is returned when text is not a phone, optionally paired
// with a payment link.
var ErrInvalidContact = errors.New("invalid contact format")

var (
	// Optional 7/8/+7 prefix, optional parenthesized area code, then 7 to 10
	// digits with optional space or dash separators.
	phonePattern = regexp.MustCompile(`^(?:\+7|7|8)?[\s-]?(?:\(\d{3,5}\))?[\s-]?(?:\d[\s-]?){6,9}\d$`)

	// Tinkoff transfer link: /rm/<surname>.<name><id>/<token>.
	linkPattern = regexp.MustCompile(`^https?://(?:www\.)?tinkoff\.ru/rm/[A-Za-z]+\.[A-Za-z]+\d+/[A-Za-z0-9]+/?$`)
)

// Contact is what a member wants to be paid to.
type Contact struct {
	Phone string
	Link  *string
}

// IsPhone reports whether s looks like a phone number.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// IsPaymentLink reports whether s looks like a payment link.
func IsPaymentLink(s string) bool {
	return linkPattern.MatchString(s)
}

// ParseContact accepts:
//   - two lines, one phone and one link in either order
//   - one line with a single phone token
//   - one line with a phone and a link separated by a space, in either order
func ParseContact(text string) (Contact, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return Contact{}, ErrInvalidContact
	}

	lines := strings.Split(text, "\n")
	switch len(lines) {
	case 1:
		return pair(strings.Split(lines[0], " "))
	case 2:
		a, b := strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])
		if a == "" || b == "" {
			return Contact{}, ErrInvalidContact
		}
		return pair([]string{a, b})
	default:
		return Contact{}, ErrInvalidContact
	}
}

// pair classifies one phone-only token or a phone and link pair.
func pair(parts []string) (Contact, error) {
	switch len(parts) {
	case 1:
		if IsPhone(parts[0]) {
			return Contact{Phone: parts[0]}, nil
		}
	case 2:
		a, b := parts[0], parts[1]
		if IsPhone(a) && IsPaymentLink(b) {
			return Contact{Phone: a, Link: &b}, nil
		}
		if IsPaymentLink(a) && IsPhone(b) {
			return Contact{Phone: b, Link: &a}, nil
		}
	}
	return Contact{}, ErrInvalidContact
}
