package rest

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karacho11/first-chatbot-back/pkg/utils"
)

// Pinger is anything the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	Cache   Pinger
	Version string
}

type HealthStatus struct {
	Status  string `json:"status"`
	Cache   string `json:"cache"`
	Version string `json:"version"`
}

func InitRestHealth(app fiber.Router, cache Pinger, version string) Health {
	handler := Health{Cache: cache, Version: version}
	app.Get("/health", handler.GetStatus)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := HealthStatus{Status: "ok", Cache: "ok", Version: h.Version}
	if err := h.Cache.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Cache = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "Cache is not reachable",
			Results: status,
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: status,
	})
}
