// Package urlutil holds the URL transforms used during sync routing.
package urlutil

import (
	"net/url"
	"strings"
)

// ExtractUTM pulls the utm_-prefixed query parameters out of a raw URL and
// joins them with ampersands, preserving their original order. Returns the
// empty string when the URL is unparseable or carries no UTM parameters.
// Must run against the original URL: Normalize discards the query string.
func ExtractUTM(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return ""
	}

	var params []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key, val, _ := strings.Cut(pair, "=")
		if !strings.HasPrefix(key, "utm_") {
			continue
		}
		if dec, err := url.QueryUnescape(val); err == nil {
			val = dec
		}
		params = append(params, key+"="+val)
	}
	return strings.Join(params, "&")
}

// Normalize lowercases a URL and strips its query string and fragment.
// Applying it twice yields the same string as once. Unparseable input is
// returned lowercased but otherwise untouched.
func Normalize(raw string) string {
	lowered := strings.ToLower(raw)
	u, err := url.Parse(lowered)
	if err != nil {
		return lowered
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
