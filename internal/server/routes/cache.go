package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/cache"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/server"
)

// Purger 清空或失效边缘缓存，由 lifecycle.Engine 实现。
type Purger interface {
	Purge(ctx context.Context) error
	Invalidate(ctx context.Context, req edge.Request) error
}

// RegisterCacheRoutes 暴露 DELETE /-/cache。不带参数时清空全部缓存，等价于对任意路径发送 PURGE；
// 带 ?path= 时只删除该路径的 GET 条目，Host 与参与 key 的请求头取自本次管理请求。
func RegisterCacheRoutes(app *fiber.App, purger Purger, logger *logrus.Logger) {
	if app == nil || purger == nil {
		return
	}

	app.Delete("/-/cache", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if target := c.Query("path"); target != "" {
			req := invalidationRequest(c, target)
			if err := purger.Invalidate(ctx, req); err != nil {
				return cacheFailure(c, logger, "cache_invalidate_failed", err)
			}
			return c.JSON(fiber.Map{"invalidated": req.URI()})
		}

		if err := purger.Purge(ctx); err != nil {
			return cacheFailure(c, logger, "cache_purge_failed", err)
		}
		return c.JSON(fiber.Map{"purged": true})
	})
}

func invalidationRequest(c fiber.Ctx, target string) edge.Request {
	headers := edge.Headers{{Key: fiber.HeaderHost, Value: c.Get(fiber.HeaderHost)}}
	for _, name := range cache.KeyHeaders {
		if value := c.Get(name); value != "" {
			headers = append(headers, edge.HeaderField{Key: name, Value: value})
		}
	}
	return edge.Request{
		Method:  fiber.MethodGet,
		Path:    target,
		Query:   c.Query("query"),
		Headers: headers,
	}
}

func cacheFailure(c fiber.Ctx, logger *logrus.Logger, code string, err error) error {
	if logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"action":     "cache_purge",
			"request_id": server.RequestID(c),
		}).Error(code)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   code,
		"message": err.Error(),
	})
}
