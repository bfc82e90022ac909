package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// trackingParamPattern matches query parameter keys that carry tracking or
// cache-busting state rather than content: utm_* campaign tags, *clid click
// identifiers, cache_* busters, and *_debug toggles. Matching is case-sensitive.
var trackingParamPattern = regexp.MustCompile(`^utm_|clid$|^cache_|_debug$`)

// NormalizeURL strips tracking query parameters from a raw URL while
// preserving all other parameters and their relative order. Scheme, host, and
// path are left untouched. Normalization is idempotent.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.RawQuery == "" {
		return parsed.String(), nil
	}

	// url.Values would lose parameter order, so filter the raw segments.
	segments := strings.Split(parsed.RawQuery, "&")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		key := seg
		if i := strings.IndexByte(seg, '='); i >= 0 {
			key = seg[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if trackingParamPattern.MatchString(key) {
			continue
		}
		kept = append(kept, seg)
	}
	parsed.RawQuery = strings.Join(kept, "&")
	return parsed.String(), nil
}

// Origin returns the scheme+host component of a URL, the unit at which crawl
// policy is scoped.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
