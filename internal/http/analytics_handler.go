package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"linkfolio/internal/analytics"
	"linkfolio/internal/config"
	"linkfolio/internal/pages"
	"linkfolio/internal/timeframe"
)

// rangeInputFromQuery reads the time window parameters of an analytics
// request. A complete start/end pair wins over days; a lone start or end is
// ignored.
func rangeInputFromQuery(ctx *cartridge.Context) timeframe.RangeInput {
	start := ctx.Query("start")
	end := ctx.Query("end")
	if start != "" && end != "" {
		return timeframe.ExplicitRange(start, end)
	}

	days, _ := strconv.Atoi(ctx.Query("days", "0"))
	return timeframe.LastNDays(days)
}

// buildOwnerQueryContext authenticates the session user against the requested
// page and resolves the time window. All six analytics endpoints funnel
// through here so the guard behaves identically everywhere.
func buildOwnerQueryContext(ctx *cartridge.Context) (*analytics.QueryContext, error) {
	userID, _ := ctx.Session.GetUserID(ctx.Ctx)
	pageID, _ := strconv.Atoi(ctx.Query("page_id", "0"))

	resolver := timeframe.NewResolver(config.GetConfig().MaxRangeDays)
	return analytics.BuildQueryContext(ctx.DB(), resolver, userID, uint(pageID), rangeInputFromQuery(ctx))
}

// handleAnalyticsError maps guard failures onto status codes. Missing pages
// and pages owned by someone else both surface as 404.
func handleAnalyticsError(ctx *cartridge.Context, err error) error {
	var missingErr *analytics.MissingParameterError
	if errors.As(err, &missingErr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": missingErr.Error()})
	}

	var unauthorizedErr *analytics.UnauthorizedError
	if errors.As(err, &unauthorizedErr) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	var pageNotFoundErr *pages.PageNotFoundError
	if errors.As(err, &pageNotFoundErr) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	}

	var parseErr *time.ParseError
	if errors.As(err, &parseErr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format, expected YYYY-MM-DD"})
	}

	ctx.Logger.Error("Failed to build analytics query context", slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// rangeMeta describes the resolved window echoed back with every report so
// the dashboard can render axis labels without re-deriving the clamp rules.
func rangeMeta(qc *analytics.QueryContext) fiber.Map {
	return fiber.Map{
		"start": qc.Range.StartDate.Format("2006-01-02"),
		"end":   qc.Range.EndDate.Format("2006-01-02"),
		"days":  qc.Range.Days(),
	}
}

// AnalyticsSummaryAction returns the headline totals for one page.
func AnalyticsSummaryAction(ctx *cartridge.Context) error {
	qc, err := buildOwnerQueryContext(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	summary := analytics.GetSummary(context.Background(), ctx.DB(), ctx.Logger, qc)
	return ctx.JSON(fiber.Map{
		"summary": summary,
		"range":   rangeMeta(qc),
	})
}

// AnalyticsDailyAction returns the gap-filled per-day series.
func AnalyticsDailyAction(ctx *cartridge.Context) error {
	qc, err := buildOwnerQueryContext(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	series := analytics.GetDailySeries(context.Background(), ctx.DB(), ctx.Logger, qc)
	return ctx.JSON(fiber.Map{
		"daily": series,
		"range": rangeMeta(qc),
	})
}

// AnalyticsLinksAction returns the per-link click table with CTR.
func AnalyticsLinksAction(ctx *cartridge.Context) error {
	qc, err := buildOwnerQueryContext(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	stats, err := analytics.GetLinkBreakdown(ctx.DB(), qc)
	if err != nil {
		ctx.Logger.Error("Failed to build link breakdown", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{
		"links": stats,
		"range": rangeMeta(qc),
	})
}

// AnalyticsDevicesAction returns view counts grouped by device class.
func AnalyticsDevicesAction(ctx *cartridge.Context) error {
	return breakdownAction(ctx, "devices", analytics.GetDeviceBreakdown)
}

// AnalyticsCountriesAction returns view counts grouped by country.
func AnalyticsCountriesAction(ctx *cartridge.Context) error {
	return breakdownAction(ctx, "countries", analytics.GetCountryBreakdown)
}

// AnalyticsSourcesAction returns view counts grouped by traffic source.
func AnalyticsSourcesAction(ctx *cartridge.Context) error {
	return breakdownAction(ctx, "sources", analytics.GetSourceBreakdown)
}

func breakdownAction(ctx *cartridge.Context, key string, fetch func(db *gorm.DB, qc *analytics.QueryContext) ([]analytics.MetricCountResult, error)) error {
	qc, err := buildOwnerQueryContext(ctx)
	if err != nil {
		return handleAnalyticsError(ctx, err)
	}

	results, err := fetch(ctx.DB(), qc)
	if err != nil {
		ctx.Logger.Error("Failed to build breakdown", slog.String("breakdown", key), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{
		key:     results,
		"range": rangeMeta(qc),
	})
}
