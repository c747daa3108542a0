// Package sources derives traffic-source labels from raw referrer strings.
package sources

import (
	"net/url"
	"strings"
)

// Unknown is the label for empty, unparseable or hostless referrers.
const Unknown = "Unknown"

// Label derives the source label for one referrer string. A utm_source query
// parameter wins over the hostname; anything that cannot be parsed down to a
// hostname is Unknown.
func Label(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return Unknown
	}

	parsed, err := url.Parse(referrer)
	if err != nil {
		return Unknown
	}

	if utmSource := parsed.Query().Get("utm_source"); utmSource != "" {
		return utmSource
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return Unknown
	}

	return strings.TrimPrefix(hostname, "www.")
}
