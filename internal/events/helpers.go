package events

import (
	"net"
	"strings"

	"log/slog"

	"github.com/mssola/useragent"

	"linkfolio/internal/pkg/geoip"
)

// DeviceClassFromUserAgent classifies a user agent into mobile, tablet or
// desktop using substring matching. Anything without a recognizable token is
// desktop. The iPad check runs first because iPad user agents may also carry
// a "Mobile" token.
func DeviceClassFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return DeviceTablet
	}
	if strings.Contains(ua, "mobile") {
		return DeviceMobile
	}
	return DeviceDesktop
}

// BrowserAndOSFromUserAgent extracts enrichment fields from the user agent.
// Both may be empty when the agent is unrecognized.
func BrowserAndOSFromUserAgent(userAgent string) (browser, os string) {
	if userAgent == "" {
		return UnknownBrowser, UnknownOS
	}

	parsed := useragent.New(userAgent)
	name, _ := parsed.Browser()
	browser = strings.ToLower(name)
	os = normalizeOperatingSystem(parsed.OS())
	return browser, os
}

// normalizeOperatingSystem collapses OS variants to a small stable set
func normalizeOperatingSystem(os string) string {
	if os == "" {
		return UnknownOS
	}

	osLower := strings.ToLower(os)

	// iPhone and Android strings also mention "Mac OS X" and "Linux", so the
	// mobile checks must run first.
	if strings.Contains(osLower, "iphone os") || strings.Contains(osLower, "cpu os") || osLower == "ios" {
		return "iOS"
	}
	if strings.Contains(osLower, "android") {
		return "Android"
	}
	if strings.Contains(osLower, "mac") || strings.Contains(osLower, "darwin") {
		return "MacOS"
	}
	if strings.Contains(osLower, "linux") {
		return "Linux"
	}
	if strings.Contains(osLower, "windows") {
		return "Windows"
	}

	return strings.ToUpper(os[:1]) + strings.ToLower(os[1:])
}

// CountryFromRequest resolves a country code for a page view. The geolocation
// header set by the edge proxy wins; without it we fall back to a GeoIP lookup
// on the client IP, and finally to the stored unknown sentinel.
func CountryFromRequest(logger *slog.Logger, geoHeader, ipAddress string) string {
	header := strings.ToLower(strings.TrimSpace(geoHeader))
	if header != "" && header != "xx" && header != "--" {
		return header
	}

	return countryFromIP(logger, ipAddress)
}

// countryFromIP resolves an IP address to a lowercase ISO country code or
// UnknownCountry. The GeoIP database is optional.
func countryFromIP(logger *slog.Logger, ipAddress string) string {
	geoDB := geoip.GetGeoDB()
	if geoDB == nil {
		return UnknownCountry
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return UnknownCountry
	}

	record, err := geoDB.Country(ip)
	if err != nil {
		logger.Debug("GeoIP lookup failed",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
		return UnknownCountry
	}

	if record.Country.IsoCode == "" || record.Country.IsoCode == "--" {
		return UnknownCountry
	}

	return strings.ToLower(record.Country.IsoCode)
}
