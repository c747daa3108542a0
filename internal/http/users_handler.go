package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/crypto"

	"linkfolio/internal/users"
)

// LoginParams is the JSON body of a login request.
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProcessLoginAction authenticates a user and issues a session cookie.
func ProcessLoginAction(ctx *cartridge.Context) error {
	var params LoginParams
	if err := ctx.BodyParser(&params); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// Fall back to form fields for non-JSON clients.
	if params.Email == "" {
		params.Email = ctx.FormValue("email")
	}
	if params.Password == "" {
		params.Password = ctx.FormValue("password")
	}

	if params.Email == "" || params.Password == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user, findErr := users.FindByEmail(ctx.DB(), params.Email)

	// Always verify a password so response time does not reveal whether the
	// email exists.
	var passwordValid bool
	if findErr != nil {
		ctx.Logger.Debug("User not found during login", slog.String("email", params.Email))
		dummyHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy" // bcrypt hash of "dummy"
		crypto.VerifyPassword(dummyHash, params.Password)
	} else {
		passwordValid = crypto.VerifyPassword(user.EncryptedPassword, params.Password)
		if !passwordValid {
			ctx.Logger.Debug("Invalid password attempt", slog.String("email", params.Email))
		}
	}

	if !passwordValid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	if err := ctx.Session.SetSession(ctx.Ctx, user.ID); err != nil {
		ctx.Logger.Error("Failed to set session", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	ctx.Logger.Debug("Login successful",
		slog.String("email", params.Email),
		slog.Int("userId", int(user.ID)))

	return ctx.JSON(fiber.Map{
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"plan":  user.Plan,
		},
	})
}

// LogoutAction clears the session.
func LogoutAction(ctx *cartridge.Context) error {
	ctx.Session.ClearSession(ctx.Ctx)
	return ctx.JSON(fiber.Map{"status": "logged_out"})
}

// MeAction returns the authenticated user's profile.
func MeAction(ctx *cartridge.Context) error {
	userID, authenticated := ctx.Session.GetUserID(ctx.Ctx)
	if !authenticated {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	user, err := users.FindByID(ctx.DB(), userID)
	if err != nil {
		ctx.Logger.Error("Failed to load session user", slog.Uint64("userID", uint64(userID)), slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return ctx.JSON(fiber.Map{
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"plan":  user.Plan,
		},
	})
}
