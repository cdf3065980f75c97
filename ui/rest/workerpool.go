package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/karacho11/first-chatbot-back/pkg/userqueue"
)

// GetUserQueueStats returns real-time statistics of the per-user write queue.
func GetUserQueueStats(pool *userqueue.Pool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pool == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "user write queue not initialized",
			})
		}
		return c.JSON(pool.GetStats())
	}
}
