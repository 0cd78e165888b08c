package guestclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/innkeep/innkeep/pkg/qrtoken"
)

// ResolvedToken is a canonical QR token plus whatever query parameters rode
// along on the scanned link, kept separate for analytics attribution.
type ResolvedToken struct {
	Token       string
	Attribution url.Values
}

// ResolveToken normalizes whatever the device handed us (a bare token, a
// full portal URL, or a /q/ shortlink) into a canonical token. Shortlinks
// are resolved by one redirect hop; the Location header is parsed rather
// than followed, so no session side effects happen here.
func (c *Client) ResolveToken(ctx context.Context, input string) (*ResolvedToken, error) {
	token, attribution, isShort, err := qrtoken.Canonicalize(input)
	if err != nil {
		return nil, ErrInvalidTokenFormat
	}
	if !isShort {
		return &ResolvedToken{Token: token, Attribution: attribution}, nil
	}

	target := strings.TrimSpace(input)
	if !strings.Contains(target, "://") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, ErrInvalidTokenFormat
	}
	res, err := c.noFollow.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedirectFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusFound && res.StatusCode != http.StatusMovedPermanently {
		return nil, fmt.Errorf("%w: portal returned %d", ErrRedirectFailed, res.StatusCode)
	}
	location := res.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("%w: redirect without location", ErrRedirectFailed)
	}

	token, redirectAttribution, isShort, err := qrtoken.Canonicalize(location)
	if err != nil || isShort {
		return nil, fmt.Errorf("%w: unusable redirect target", ErrRedirectFailed)
	}
	if len(redirectAttribution) > 0 {
		attribution = redirectAttribution
	}
	return &ResolvedToken{Token: token, Attribution: attribution}, nil
}
