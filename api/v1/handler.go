package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkfolio/internal/events"
	"linkfolio/internal/pages"
)

const (
	msgEventAccepted  = "Event accepted"
	errInvalidRequest = "Invalid request"
	errMissingSlug    = "Missing page slug"
)

// PageViewParams is the JSON body of a page view ingestion request.
type PageViewParams struct {
	Slug      string    `json:"slug"`
	VisitorID string    `json:"visitorId"`
	Referrer  string    `json:"referrer"`
	Timestamp time.Time `json:"timestamp"`
}

// LinkClickParams is the JSON body of a link click ingestion request.
// LinkID takes precedence over URL for attribution when both are present.
type LinkClickParams struct {
	Slug      string    `json:"slug"`
	LinkID    uint      `json:"linkId"`
	URL       string    `json:"url"`
	VisitorID string    `json:"visitorId"`
	Referrer  string    `json:"referrer"`
	Timestamp time.Time `json:"timestamp"`
}

// CreatePageViewHandler accepts a page view event from the tracker script.
func CreatePageViewHandler(ctx *cartridge.Context) error {
	var params PageViewParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse page view request", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	if strings.TrimSpace(params.Slug) == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errMissingSlug,
			"code":  "MISSING_SLUG",
		})
	}

	input := &events.RecordPageViewInput{
		Slug:      params.Slug,
		VisitorID: params.VisitorID,
		UserAgent: userAgentFromRequest(ctx),
		Referrer:  params.Referrer,
		GeoHeader: geoHeaderFromRequest(ctx),
		IPAddress: getClientIP(ctx.Ctx),
		Timestamp: params.Timestamp,
	}

	if err := events.RecordPageView(ctx.DBManager, ctx.Logger, input); err != nil {
		return handleIngestionError(ctx, "page view", err)
	}

	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAccepted,
		"status":  http.StatusAccepted,
	})
}

// CreateLinkClickHandler accepts a link click event from the tracker script.
func CreateLinkClickHandler(ctx *cartridge.Context) error {
	var params LinkClickParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse link click request", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	if strings.TrimSpace(params.Slug) == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errMissingSlug,
			"code":  "MISSING_SLUG",
		})
	}

	input := &events.RecordLinkClickInput{
		Slug:      params.Slug,
		LinkID:    params.LinkID,
		URL:       params.URL,
		VisitorID: params.VisitorID,
		Referrer:  params.Referrer,
		Timestamp: params.Timestamp,
	}

	if err := events.RecordLinkClick(ctx.DBManager, ctx.Logger, input); err != nil {
		return handleIngestionError(ctx, "link click", err)
	}

	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAccepted,
		"status":  http.StatusAccepted,
	})
}

// CreatePageViewBeaconHandler handles page views sent via navigator.sendBeacon.
// Beacons fire during page unload so there is nobody left to read an error:
// every outcome returns 202.
func CreatePageViewBeaconHandler(ctx *cartridge.Context) error {
	var params PageViewParams
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Failed to parse page view beacon", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if strings.TrimSpace(params.Slug) == "" {
		return ctx.SendStatus(http.StatusAccepted)
	}

	input := &events.RecordPageViewInput{
		Slug:      params.Slug,
		VisitorID: params.VisitorID,
		UserAgent: userAgentFromRequest(ctx),
		Referrer:  params.Referrer,
		GeoHeader: geoHeaderFromRequest(ctx),
		IPAddress: getClientIP(ctx.Ctx),
		Timestamp: params.Timestamp,
	}

	if err := events.RecordPageView(ctx.DBManager, ctx.Logger, input); err != nil {
		ctx.Logger.Debug("Dropped page view beacon", slog.String("slug", params.Slug), slog.Any("error", err))
	}

	return ctx.SendStatus(http.StatusAccepted)
}

// CreateLinkClickBeaconHandler handles link clicks sent via navigator.sendBeacon.
func CreateLinkClickBeaconHandler(ctx *cartridge.Context) error {
	var params LinkClickParams
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Failed to parse link click beacon", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if strings.TrimSpace(params.Slug) == "" {
		return ctx.SendStatus(http.StatusAccepted)
	}

	input := &events.RecordLinkClickInput{
		Slug:      params.Slug,
		LinkID:    params.LinkID,
		URL:       params.URL,
		VisitorID: params.VisitorID,
		Referrer:  params.Referrer,
		Timestamp: params.Timestamp,
	}

	if err := events.RecordLinkClick(ctx.DBManager, ctx.Logger, input); err != nil {
		ctx.Logger.Debug("Dropped link click beacon", slog.String("slug", params.Slug), slog.Any("error", err))
	}

	return ctx.SendStatus(http.StatusAccepted)
}

// handleIngestionError maps recording failures onto API status codes. SQLite
// contention gets a custom 599 so the tracker script can retry with backoff.
func handleIngestionError(ctx *cartridge.Context, kind string, err error) error {
	if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
		ctx.Logger.Warn("Dropped event due to database contention",
			slog.String("kind", kind), slog.Any("error", err))
		return ctx.Status(599).JSON(fiber.Map{})
	}

	var pageNotFoundErr *pages.PageNotFoundError
	if errors.As(err, &pageNotFoundErr) {
		ctx.Logger.Debug("Event for unknown page", slog.String("kind", kind), slog.Any("error", err))
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Page not found",
			"code":  "PAGE_NOT_FOUND",
		})
	}

	ctx.Logger.Error("Failed to record event", slog.String("kind", kind), slog.Any("error", err))
	return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to record event",
		"code":  "COLLECTION_ERROR",
	})
}

// userAgentFromRequest prefers the proxied user agent when a CDN edge worker
// forwards the original one.
func userAgentFromRequest(ctx *cartridge.Context) string {
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		return forwardedUA
	}
	return ctx.Get("User-Agent")
}

// geoHeaderFromRequest reads the edge-provided country code, if any. The
// GeoIP database is only consulted when no trusted proxy resolved it already.
func geoHeaderFromRequest(ctx *cartridge.Context) string {
	if country := ctx.Get("CF-IPCountry"); country != "" {
		return country
	}
	return ctx.Get("X-Geo-Country")
}
