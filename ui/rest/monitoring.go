package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karacho11/first-chatbot-back/pkg/userqueue"
)

// InitRestMonitoring registers the Prometheus scrape endpoint and the queue stats.
func InitRestMonitoring(app fiber.Router, gatherer prometheus.Gatherer, pool *userqueue.Pool) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.Get("/api/monitoring/user-queue", GetUserQueueStats(pool))
}
