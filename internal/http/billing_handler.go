package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"linkfolio/internal/subscriptions"
	"linkfolio/internal/users"
)

// BillingUpgradeAction starts the upgrade flow for the session user and
// returns the stub checkout session.
func BillingUpgradeAction(ctx *cartridge.Context) error {
	userID, authenticated := ctx.Session.GetUserID(ctx.Ctx)
	if !authenticated {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	user, err := users.FindByID(ctx.DB(), userID)
	if err != nil {
		ctx.Logger.Error("Failed to load user for upgrade", slog.Uint64("userID", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	session, err := subscriptions.StartUpgrade(ctx.DB(), ctx.Logger, user)
	if err != nil {
		if user.IsPro() {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already on the pro plan"})
		}
		ctx.Logger.Error("Failed to start upgrade", slog.Uint64("userID", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start upgrade"})
	}

	return ctx.JSON(fiber.Map{"checkout": session})
}

// BillingCompleteParams is the JSON body of the completion webhook stub.
type BillingCompleteParams struct {
	IntentID uint `json:"intent_id"`
}

// BillingCompleteAction finalizes an upgrade intent. In production a payment
// processor's webhook would call this; here it is a manual stub and remains
// idempotent either way.
func BillingCompleteAction(ctx *cartridge.Context) error {
	userID, authenticated := ctx.Session.GetUserID(ctx.Ctx)
	if !authenticated {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	var params BillingCompleteParams
	if err := ctx.BodyParser(&params); err != nil || params.IntentID == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing intent_id"})
	}

	if err := subscriptions.CompleteUpgrade(ctx.DB(), ctx.Logger, userID, params.IntentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		ctx.Logger.Error("Failed to complete upgrade",
			slog.Uint64("userID", uint64(userID)),
			slog.Uint64("intentID", uint64(params.IntentID)),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete upgrade"})
	}

	return ctx.JSON(fiber.Map{"status": "upgraded"})
}
