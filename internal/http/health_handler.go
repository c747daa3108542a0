package http

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
)

var startedAt = time.Now()

// HealthStatus is the health check response body.
type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	DBStatus      string    `json:"db_status"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// HealthIndexAction reports process and database health.
func HealthIndexAction(ctx *cartridge.Context) error {
	dbStatus := "ok"

	db := ctx.DBManager.GetConnection()
	if db == nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else if sqlDB, err := db.DB(); err != nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection error", slog.Any("error", err))
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error"
		ctx.Logger.Error("Database ping failed", slog.Any("error", err))
	}

	health := HealthStatus{
		Status:        "ok",
		Timestamp:     time.Now(),
		DBStatus:      dbStatus,
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
	if dbStatus != "ok" {
		health.Status = "degraded"
	}

	return ctx.JSON(health)
}
