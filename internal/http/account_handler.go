package http

import (
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/crypto"

	"linkfolio/internal/users"
)

// ChangePasswordParams is the JSON body of a password change request.
type ChangePasswordParams struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AccountChangePasswordAction changes the session user's password after
// verifying the current one.
func AccountChangePasswordAction(ctx *cartridge.Context) error {
	userID, authenticated := ctx.Session.GetUserID(ctx.Ctx)
	if !authenticated {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	var params ChangePasswordParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if strings.TrimSpace(params.CurrentPassword) == "" {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Current password is required"})
	}
	if strings.TrimSpace(params.NewPassword) == "" {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "New password is required"})
	}
	if len(params.NewPassword) < 8 {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "New password must be at least 8 characters long"})
	}

	db := ctx.DB()

	user, err := users.FindByID(db, userID)
	if err != nil {
		ctx.Logger.Error("Failed to find user for password change", slog.Uint64("userID", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	if !crypto.VerifyPassword(user.EncryptedPassword, params.CurrentPassword) {
		ctx.Logger.Warn("Invalid current password provided during password change", slog.Uint64("userID", uint64(userID)))
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Current password is incorrect"})
	}

	if err := users.ChangePassword(db, user.Email, params.NewPassword); err != nil {
		ctx.Logger.Error("Failed to change password", slog.Uint64("userID", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to change password"})
	}

	ctx.Logger.Info("Password changed successfully", slog.Uint64("userID", uint64(userID)), slog.String("email", user.Email))
	return ctx.JSON(fiber.Map{"status": "password_changed"})
}
