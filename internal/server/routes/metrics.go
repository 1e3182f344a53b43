package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/edgesim/internal/metrics"
)

// RegisterMetricsRoutes 以 Prometheus 文本格式暴露 /-/metrics。
func RegisterMetricsRoutes(app *fiber.App, recorder *metrics.Recorder) {
	if app == nil || recorder == nil {
		return
	}
	handler := promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{})
	app.Get("/-/metrics", adaptor.HTTPHandler(handler))
}
