package events

// Device classes stored on page view events
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Stored defaults for values that could not be derived at ingestion time.
// UnknownCountry is the stored sentinel; breakdowns surface it as "Unknown".
const (
	UnknownCountry = "unknown"
	UnknownBrowser = ""
	UnknownOS      = ""
)
