// Package qrtoken normalizes whatever a guest device presents (a bare token,
// a full portal URL, or a pasted link with tracking parameters) into one
// canonical token string.
package qrtoken

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidFormat = errors.New("invalid token format")

// Tokens are URL-safe and long enough not to be guessable by hand.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

const (
	guestPathPrefix = "/guest/qr/"
	shortPathPrefix = "/q/"
)

// Canonicalize trims the input, unwraps portal URLs and validates the token
// format. Query parameters are stripped from the token but returned for
// analytics attribution. Shortlink URLs are reported via isShort so the
// caller can resolve the redirect first.
func Canonicalize(input string) (token string, attribution url.Values, isShort bool, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil, false, ErrInvalidFormat
	}

	if strings.Contains(s, "://") || strings.HasPrefix(s, "/") {
		u, perr := url.Parse(s)
		if perr != nil {
			return "", nil, false, ErrInvalidFormat
		}
		attribution = u.Query()

		switch {
		case strings.HasPrefix(u.Path, guestPathPrefix):
			s = strings.TrimPrefix(u.Path, guestPathPrefix)
		case strings.HasPrefix(u.Path, shortPathPrefix):
			return "", attribution, true, nil
		default:
			return "", nil, false, ErrInvalidFormat
		}
		s = strings.Trim(s, "/")
	}

	if !tokenPattern.MatchString(s) {
		return "", nil, false, ErrInvalidFormat
	}
	return s, attribution, false, nil
}

// Valid reports whether s is already a canonical token.
func Valid(s string) bool {
	return tokenPattern.MatchString(s)
}
