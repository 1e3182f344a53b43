package proxy

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/lifecycle"
	"github.com/any-hub/edgesim/internal/logging"
	"github.com/any-hub/edgesim/internal/origin"
	"github.com/any-hub/edgesim/internal/server"
)

// Handler 将 Fiber 请求转换为 edge.Request 交给生命周期引擎，再把最终 Response 写回 viewer。
// PURGE 动词直接触发缓存清空，不进入生命周期。
type Handler struct {
	engine *lifecycle.Engine
	logger *logrus.Logger
}

// NewHandler constructs a proxy handler around the shared lifecycle engine.
func NewHandler(engine *lifecycle.Engine, logger *logrus.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Handle 执行一次完整生命周期，任何阶段出错都会输出结构化日志。
func (h *Handler) Handle(c fiber.Ctx, set *behavior.FunctionSet) error {
	started := time.Now()
	requestID := server.RequestID(c)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if server.IsPurge(c) {
		return h.purge(c, ctx, requestID)
	}

	req := requestFromFiber(c)
	outcome, err := h.engine.RunWith(ctx, req, set)
	if err != nil {
		return h.respondLifecycleError(c, set, req, err, requestID, started)
	}

	resp := outcome.Response
	body, err := resp.DecodedBody()
	if err != nil {
		return h.respondLifecycleError(c, set, req, err, requestID, started)
	}

	writeHeaders(c, resp)
	c.Set("X-Edge-Cache", string(outcome.Cache))
	c.Set("X-Edge-Behavior", outcome.Behavior)
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}

	fields := h.requestFields(set, req, outcome.Cache == lifecycle.CacheHit, requestID)
	fields["action"] = "edge"
	fields["status"] = statusOrDefault(resp.StatusCode)
	fields["path_taken"] = outcome.Path
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	h.logger.WithFields(fields).Info("edge_complete")
	return c.Status(statusOrDefault(resp.StatusCode)).Send(body)
}

func (h *Handler) purge(c fiber.Ctx, ctx context.Context, requestID string) error {
	if err := h.engine.Purge(ctx); err != nil {
		h.logger.WithError(err).
			WithFields(logrus.Fields{"action": "cache_purge", "request_id": requestID}).
			Error("cache_purge_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "cache_purge_failed",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"purged": true})
}

func (h *Handler) respondLifecycleError(c fiber.Ctx, set *behavior.FunctionSet, req edge.Request, err error, requestID string, started time.Time) error {
	fields := h.requestFields(set, req, false, requestID)
	fields["action"] = "edge"
	fields["status"] = fiber.StatusBadGateway
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	h.logger.WithFields(fields).WithError(err).Error("edge_failed")

	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error":   "edge_lifecycle_failed",
		"message": err.Error(),
	})
}

func (h *Handler) requestFields(set *behavior.FunctionSet, req edge.Request, cacheHit bool, requestID string) logrus.Fields {
	pattern, kind := "", ""
	if set != nil {
		pattern = set.Pattern()
		kind = string(set.Origin().Kind())
	}
	fields := logging.RequestFields(pattern, req.Method, req.Path, kind, cacheHit)
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// requestFromFiber 复制请求行、头部与正文；fasthttp 的缓冲区在请求结束后会被复用。
func requestFromFiber(c fiber.Ctx) edge.Request {
	var headers edge.Headers
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers = append(headers, edge.HeaderField{Key: string(key), Value: string(value)})
	})

	var body []byte
	if raw := c.Request().Body(); len(raw) > 0 {
		body = append([]byte(nil), raw...)
	}

	return edge.Request{
		Method:   c.Method(),
		Path:     string(c.Request().URI().Path()),
		Query:    string(c.Request().URI().QueryString()),
		Headers:  headers,
		Body:     body,
		ClientIP: c.IP(),
	}
}

func writeHeaders(c fiber.Ctx, resp edge.Response) {
	for _, field := range resp.Headers {
		if origin.IsHopByHopHeader(field.Key) || strings.EqualFold(field.Key, fiber.HeaderContentLength) {
			continue
		}
		c.Response().Header.Add(field.Key, field.Value)
	}
}

func statusOrDefault(code int) int {
	if code <= 0 {
		return fiber.StatusOK
	}
	return code
}
