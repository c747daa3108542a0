package middleware

import (
	"errors"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"linkfolio/internal/pages"
)

// PageFilter resolves the :slug route parameter to a page id and stores it in
// the request context. Dependencies are injected via the factory function so
// the handler chain stays testable.
func PageFilter(db *gorm.DB, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := pages.NormalizeSlug(c.Params("slug"))
		if slug == "" {
			return c.Status(fiber.StatusNotFound).SendString("Page not found")
		}

		page, err := pages.GetPageBySlug(db, slug)
		if err != nil {
			var notFoundErr *pages.PageNotFoundError
			if !errors.As(err, &notFoundErr) {
				logger.Error("Failed to resolve page slug", slog.String("slug", slug), slog.Any("error", err))
			}
			return c.Status(fiber.StatusNotFound).SendString("Page not found")
		}

		c.Locals("page", page)
		logger.Debug("Resolved public page", slog.String("slug", slug), slog.Uint64("page_id", uint64(page.ID)))
		return c.Next()
	}
}
