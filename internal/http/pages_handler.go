package http

import (
	"errors"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkfolio/internal/events"
	"linkfolio/internal/links"
	"linkfolio/internal/pages"
)

// PageParams is the JSON body for page create and update requests. The slug
// is only honored on create; it is immutable afterwards.
type PageParams struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Theme       string `json:"theme"`
	Languages   string `json:"languages"`
	SocialIcons string `json:"social_icons"`
}

// requireUserID reads the authenticated user from the session. Routes behind
// the session middleware always have one; the check guards direct calls in
// tests.
func requireUserID(ctx *cartridge.Context) (uint, error) {
	userID, authenticated := ctx.Session.GetUserID(ctx.Ctx)
	if !authenticated {
		return 0, ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}
	return userID, nil
}

// PagesIndexAction lists the user's pages with 7-day view counts.
func PagesIndexAction(ctx *cartridge.Context) error {
	userID, err := requireUserID(ctx)
	if err != nil || userID == 0 {
		return err
	}

	result, listErr := pages.GetPagesWithStats(ctx.DB(), userID, 7)
	if listErr != nil {
		ctx.Logger.Error("Failed to list pages", slog.Any("error", listErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{"pages": result})
}

// PageShowAction returns one owned page with all of its links, including
// inactive and expired ones, for the editor view.
func PageShowAction(ctx *cartridge.Context) error {
	userID, err := requireUserID(ctx)
	if err != nil || userID == 0 {
		return err
	}

	pageID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page id"})
	}

	page, getErr := pages.GetOwnedPage(ctx.DB(), userID, uint(pageID))
	if getErr != nil {
		return handlePageError(ctx, getErr)
	}

	pageLinks, linksErr := links.GetLinksByPage(ctx.DB(), page.ID)
	if linksErr != nil {
		ctx.Logger.Error("Failed to load links", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", linksErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{"page": page, "links": pageLinks})
}

// PageCreateAction claims a slug and creates a page for the session user.
func PageCreateAction(ctx *cartridge.Context) error {
	userID, err := requireUserID(ctx)
	if err != nil || userID == 0 {
		return err
	}

	var params PageParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	page := &pages.Page{
		UserID:      userID,
		Slug:        params.Slug,
		DisplayName: params.DisplayName,
		Bio:         params.Bio,
		Theme:       params.Theme,
		Languages:   params.Languages,
		SocialIcons: params.SocialIcons,
	}

	if err := pages.ValidateSlug(pages.NormalizeSlug(params.Slug)); err != nil {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Slug must be 3-64 characters of lowercase letters, digits and hyphens",
		})
	}

	available, availErr := pages.IsSlugAvailable(ctx.DB(), params.Slug)
	if availErr != nil {
		ctx.Logger.Error("Failed to check slug availability", slog.Any("error", availErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	if !available {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slug is already taken"})
	}

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return pages.CreatePage(tx, page)
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to create page", slog.String("slug", params.Slug), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create page"})
	}

	ctx.Logger.Info("Page created", slog.String("slug", page.Slug), slog.Uint64("userID", uint64(userID)))
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"page": page})
}

// PageUpdateAction updates the mutable profile fields of an owned page.
// Slug changes in the body are silently ignored.
func PageUpdateAction(ctx *cartridge.Context) error {
	userID, err := requireUserID(ctx)
	if err != nil || userID == 0 {
		return err
	}

	pageID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page id"})
	}

	page, getErr := pages.GetOwnedPage(ctx.DB(), userID, uint(pageID))
	if getErr != nil {
		return handlePageError(ctx, getErr)
	}

	var params PageParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	page.DisplayName = params.DisplayName
	page.Bio = params.Bio
	if params.Theme != "" {
		page.Theme = params.Theme
	}
	page.Languages = params.Languages
	page.SocialIcons = params.SocialIcons

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return pages.UpdatePage(tx, page)
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to update page", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update page"})
	}

	return ctx.JSON(fiber.Map{"page": page})
}

// PageDeleteAction deletes an owned page together with its links and events.
func PageDeleteAction(ctx *cartridge.Context) error {
	userID, err := requireUserID(ctx)
	if err != nil || userID == 0 {
		return err
	}

	pageID, err := ctx.ParamsInt("id")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page id"})
	}

	page, getErr := pages.GetOwnedPage(ctx.DB(), userID, uint(pageID))
	if getErr != nil {
		return handlePageError(ctx, getErr)
	}

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return pages.DeletePage(tx, page.ID)
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to delete page", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete page"})
	}

	// Drop the ingestion cache entry so late beacons stop resolving the slug.
	events.ForgetSlug(page.Slug)

	ctx.Logger.Info("Page deleted", slog.String("slug", page.Slug), slog.Uint64("userID", uint64(userID)))
	return ctx.JSON(fiber.Map{"status": "deleted"})
}

// SlugAvailabilityAction reports whether a slug can still be claimed.
func SlugAvailabilityAction(ctx *cartridge.Context) error {
	slug := pages.NormalizeSlug(ctx.Query("slug"))
	if slug == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing slug"})
	}

	if err := pages.ValidateSlug(slug); err != nil {
		return ctx.JSON(fiber.Map{"slug": slug, "available": false, "reason": "invalid"})
	}

	available, err := pages.IsSlugAvailable(ctx.DB(), slug)
	if err != nil {
		ctx.Logger.Error("Failed to check slug availability", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{"slug": slug, "available": available})
}

// PublicPageAction serves the public JSON rendition of a page: profile fields
// plus the currently visible links in display order. The PageFilter middleware
// has already resolved the slug.
func PublicPageAction(ctx *cartridge.Context) error {
	page, ok := ctx.Locals("page").(*pages.Page)
	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	}

	visibleLinks, err := links.GetVisibleLinksByPage(ctx.DB(), page.ID, time.Now().UTC())
	if err != nil {
		ctx.Logger.Error("Failed to load visible links", slog.String("slug", page.Slug), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	// Public pages are cache-friendly; 60s keeps edits reasonably fresh.
	ctx.Set("Cache-Control", "public, max-age=60")

	return ctx.JSON(fiber.Map{
		"slug":         page.Slug,
		"display_name": page.DisplayName,
		"bio":          page.Bio,
		"theme":        page.Theme,
		"languages":    page.Languages,
		"social_icons": page.SocialIcons,
		"links":        visibleLinks,
	})
}

// handlePageError maps page lookup failures onto status codes.
func handlePageError(ctx *cartridge.Context, err error) error {
	var notFoundErr *pages.PageNotFoundError
	if errors.As(err, &notFoundErr) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	}

	ctx.Logger.Error("Page lookup failed", slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
