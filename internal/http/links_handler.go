package http

import (
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkfolio/internal/links"
	"linkfolio/internal/pages"
	"linkfolio/internal/subscriptions"
	"linkfolio/internal/users"
)

// LinkParams is the JSON body for link create and update requests.
type LinkParams struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Icon      string     `json:"icon"`
	IsActive  *bool      `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ReorderParams is the JSON body for link reorder requests.
type ReorderParams struct {
	Position int `json:"position"`
}

// ownedPageFromParams resolves the :id route parameter to a page the session
// user owns. Every link mutation goes through this gate.
func ownedPageFromParams(ctx *cartridge.Context) (*pages.Page, uint, error) {
	userID, authenticated := ctx.Session.GetUserID(ctx.Ctx)
	if !authenticated {
		return nil, 0, ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	pageID, err := ctx.ParamsInt("id")
	if err != nil {
		return nil, 0, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page id"})
	}

	page, err := pages.GetOwnedPage(ctx.DB(), userID, uint(pageID))
	if err != nil {
		return nil, 0, handlePageError(ctx, err)
	}

	return page, userID, nil
}

// LinksIndexAction lists all links of an owned page in display order.
func LinksIndexAction(ctx *cartridge.Context) error {
	page, _, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	pageLinks, listErr := links.GetLinksByPage(ctx.DB(), page.ID)
	if listErr != nil {
		ctx.Logger.Error("Failed to list links", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", listErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{"links": pageLinks})
}

// LinkCreateAction appends a link to an owned page, enforcing the plan cap.
func LinkCreateAction(ctx *cartridge.Context) error {
	page, userID, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	var params LinkParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if strings.TrimSpace(params.Title) == "" || strings.TrimSpace(params.URL) == "" {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Title and URL are required"})
	}

	user, userErr := users.FindByID(ctx.DB(), userID)
	if userErr != nil {
		ctx.Logger.Error("Failed to load user for link limit check", slog.Any("error", userErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	if limitErr := subscriptions.CheckLinkLimit(ctx.DB(), user, page.ID); limitErr != nil {
		if errors.Is(limitErr, subscriptions.ErrLinkLimitReached) {
			return ctx.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Link limit reached, upgrade to add more links",
				"code":  "LINK_LIMIT_REACHED",
			})
		}
		ctx.Logger.Error("Failed to check link limit", slog.Any("error", limitErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	link := &links.Link{
		PageID:    page.ID,
		Title:     params.Title,
		URL:       params.URL,
		Icon:      params.Icon,
		Active:    true,
		ExpiresAt: params.ExpiresAt,
	}
	if params.IsActive != nil {
		link.Active = *params.IsActive
	}

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return links.CreateLink(tx, link)
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to create link", slog.Uint64("pageID", uint64(page.ID)), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create link"})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"link": link})
}

// LinkUpdateAction updates a link's fields. Position changes go through the
// reorder endpoint instead so ordering stays dense.
func LinkUpdateAction(ctx *cartridge.Context) error {
	page, _, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	linkID, err := ctx.ParamsInt("linkId")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid link id"})
	}

	link, getErr := links.GetLinkByID(ctx.DB(), page.ID, uint(linkID))
	if getErr != nil {
		return handleLinkError(ctx, getErr)
	}

	var params LinkParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if params.Title != "" {
		link.Title = params.Title
	}
	if params.URL != "" {
		link.URL = params.URL
	}
	link.Icon = params.Icon
	if params.IsActive != nil {
		link.Active = *params.IsActive
	}
	link.ExpiresAt = params.ExpiresAt

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return links.UpdateLink(tx, link)
	})
	if writeErr != nil {
		ctx.Logger.Error("Failed to update link", slog.Uint64("linkID", uint64(link.ID)), slog.Any("error", writeErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update link"})
	}

	return ctx.JSON(fiber.Map{"link": link})
}

// LinkDeleteAction removes a link and compacts the remaining positions.
// Historical click events keep their link id; the breakdown simply stops
// listing the deleted link.
func LinkDeleteAction(ctx *cartridge.Context) error {
	page, _, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	linkID, err := ctx.ParamsInt("linkId")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid link id"})
	}

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return links.DeleteLink(tx, page.ID, uint(linkID))
	})
	if writeErr != nil {
		return handleLinkError(ctx, writeErr)
	}

	return ctx.JSON(fiber.Map{"status": "deleted"})
}

// LinkReorderAction moves a link to a new position. Out-of-range targets are
// clamped rather than rejected.
func LinkReorderAction(ctx *cartridge.Context) error {
	page, _, err := ownedPageFromParams(ctx)
	if page == nil {
		return err
	}

	linkID, err := ctx.ParamsInt("linkId")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid link id"})
	}

	var params ReorderParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	writeErr := sqlite.PerformWrite(ctx.Logger, ctx.DB(), func(tx *gorm.DB) error {
		return links.ReorderLink(tx, page.ID, uint(linkID), params.Position)
	})
	if writeErr != nil {
		return handleLinkError(ctx, writeErr)
	}

	pageLinks, listErr := links.GetLinksByPage(ctx.DB(), page.ID)
	if listErr != nil {
		ctx.Logger.Error("Failed to reload links after reorder", slog.Any("error", listErr))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{"links": pageLinks})
}

func handleLinkError(ctx *cartridge.Context, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Link not found"})
	}

	ctx.Logger.Error("Link operation failed", slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
