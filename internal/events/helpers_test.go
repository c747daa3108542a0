package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linkfolio/internal/events"
	"linkfolio/internal/testsupport"
)

const (
	uaWindowsChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaIPhoneSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaIPadSafari    = "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	uaAndroidTablet = "Mozilla/5.0 (Linux; Android 13; SM-X906C Tablet) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36"
	uaAndroidPhone  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

func TestDeviceClassFromUserAgent(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"desktop chrome on windows", uaWindowsChrome, events.DeviceDesktop},
		{"iphone is mobile", uaIPhoneSafari, events.DeviceMobile},
		{"android phone is mobile", uaAndroidPhone, events.DeviceMobile},
		// iPad user agents also carry a Mobile token; the tablet check wins.
		{"ipad is tablet not mobile", uaIPadSafari, events.DeviceTablet},
		{"android tablet is tablet", uaAndroidTablet, events.DeviceTablet},
		{"empty user agent defaults to desktop", "", events.DeviceDesktop},
		{"unrecognized user agent defaults to desktop", "curl/8.4.0", events.DeviceDesktop},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, events.DeviceClassFromUserAgent(tc.userAgent))
		})
	}
}

func TestBrowserAndOSFromUserAgent(t *testing.T) {
	browser, os := events.BrowserAndOSFromUserAgent(uaWindowsChrome)
	assert.Equal(t, "chrome", browser)
	assert.Equal(t, "Windows", os)

	browser, os = events.BrowserAndOSFromUserAgent(uaIPhoneSafari)
	assert.Equal(t, "safari", browser)
	assert.Equal(t, "iOS", os)

	browser, os = events.BrowserAndOSFromUserAgent("")
	assert.Equal(t, events.UnknownBrowser, browser)
	assert.Equal(t, events.UnknownOS, os)
}

func TestCountryFromRequest(t *testing.T) {
	logger := testsupport.GetLogger()

	t.Run("geo header wins and is lowercased", func(t *testing.T) {
		assert.Equal(t, "de", events.CountryFromRequest(logger, "DE", "203.0.113.7"))
		assert.Equal(t, "us", events.CountryFromRequest(logger, " us ", ""))
	})

	t.Run("sentinel header values are ignored", func(t *testing.T) {
		// No GeoIP database is loaded in tests, so the fallback is unknown.
		assert.Equal(t, events.UnknownCountry, events.CountryFromRequest(logger, "XX", "203.0.113.7"))
		assert.Equal(t, events.UnknownCountry, events.CountryFromRequest(logger, "--", "203.0.113.7"))
	})

	t.Run("no header and no database is unknown", func(t *testing.T) {
		assert.Equal(t, events.UnknownCountry, events.CountryFromRequest(logger, "", "203.0.113.7"))
		assert.Equal(t, events.UnknownCountry, events.CountryFromRequest(logger, "", ""))
	})
}
