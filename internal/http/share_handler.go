package http

import (
	"context"
	"errors"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkfolio/internal/analytics"
	"linkfolio/internal/config"
	"linkfolio/internal/pages"
	"linkfolio/internal/timeframe"
)

// EnableShareAction turns on read-only public analytics for an owned page and
// returns the share token.
func EnableShareAction(ctx *cartridge.Context) error {
	page, _, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	var token string
	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		var innerErr error
		token, innerErr = pages.EnableSharing(tx, page.ID)
		return innerErr
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to enable sharing", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enable sharing"})
	}

	ctx.Logger.Info("Public sharing enabled", slog.Uint64("pageID", uint64(page.ID)))
	return ctx.JSON(fiber.Map{"share_token": token})
}

// DisableShareAction revokes the share token. Old share URLs return 404 from
// then on.
func DisableShareAction(ctx *cartridge.Context) error {
	page, _, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return pages.DisableSharing(tx, page.ID)
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to disable sharing", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to disable sharing"})
	}

	ctx.Logger.Info("Public sharing disabled", slog.Uint64("pageID", uint64(page.ID)))
	return ctx.JSON(fiber.Map{"status": "disabled"})
}

// sharedQueryContext resolves a share token to a query context. An unknown or
// revoked token is a plain 404, indistinguishable from a never-issued one.
func sharedQueryContext(ctx *cartridge.Context) (*analytics.QueryContext, error) {
	token := ctx.Params("token")
	if token == "" {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}

	page, err := pages.GetPageByShareToken(ctx.DB(), token)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.Logger.Error("Failed to resolve share token", slog.Any("error", err))
		}
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}

	resolver := timeframe.NewResolver(config.GetConfig().MaxRangeDays)
	qc, err := analytics.BuildSharedQueryContext(resolver, page.ID, rangeInputFromQuery(ctx))
	if err != nil {
		return nil, handleAnalyticsError(ctx, err)
	}

	// Shared dashboards are cacheable; they are read-only by construction.
	ctx.Set("Cache-Control", "public, max-age=300")

	return qc, nil
}

// SharedSummaryAction returns the headline totals for a shared page.
func SharedSummaryAction(ctx *cartridge.Context) error {
	qc, err := sharedQueryContext(ctx)
	if qc == nil {
		return err
	}

	summary := analytics.GetSummary(context.Background(), ctx.DB(), ctx.Logger, qc)
	return ctx.JSON(fiber.Map{
		"summary": summary,
		"range":   rangeMeta(qc),
	})
}

// SharedDailyAction returns the gap-filled per-day series for a shared page.
func SharedDailyAction(ctx *cartridge.Context) error {
	qc, err := sharedQueryContext(ctx)
	if qc == nil {
		return err
	}

	series := analytics.GetDailySeries(context.Background(), ctx.DB(), ctx.Logger, qc)
	return ctx.JSON(fiber.Map{
		"daily": series,
		"range": rangeMeta(qc),
	})
}

// SharedLinksAction returns the per-link click table for a shared page.
func SharedLinksAction(ctx *cartridge.Context) error {
	qc, err := sharedQueryContext(ctx)
	if qc == nil {
		return err
	}

	stats, linkErr := analytics.GetLinkBreakdown(ctx.DB(), qc)
	if linkErr != nil {
		ctx.Logger.Error("Failed to build shared link breakdown", slog.Any("error", linkErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{
		"links": stats,
		"range": rangeMeta(qc),
	})
}

// SharedDevicesAction returns the device breakdown for a shared page.
func SharedDevicesAction(ctx *cartridge.Context) error {
	return sharedBreakdownAction(ctx, "devices", analytics.GetDeviceBreakdown)
}

// SharedCountriesAction returns the country breakdown for a shared page.
func SharedCountriesAction(ctx *cartridge.Context) error {
	return sharedBreakdownAction(ctx, "countries", analytics.GetCountryBreakdown)
}

// SharedSourcesAction returns the traffic source breakdown for a shared page.
func SharedSourcesAction(ctx *cartridge.Context) error {
	return sharedBreakdownAction(ctx, "sources", analytics.GetSourceBreakdown)
}

func sharedBreakdownAction(ctx *cartridge.Context, key string, fetch func(db *gorm.DB, qc *analytics.QueryContext) ([]analytics.MetricCountResult, error)) error {
	qc, err := sharedQueryContext(ctx)
	if qc == nil {
		return err
	}

	results, fetchErr := fetch(ctx.DB(), qc)
	if fetchErr != nil {
		ctx.Logger.Error("Failed to build shared breakdown", slog.String("breakdown", key), slog.Any("error", fetchErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{
		key:     results,
		"range": rangeMeta(qc),
	})
}
