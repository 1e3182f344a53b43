package proxy

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/logging"
	"github.com/any-hub/edgesim/internal/server"
)

// Forwarder 包装实际的 ProxyHandler，负责兜底边缘函数 panic 与缺失 handler 的情况，
// 保证每个失败请求都有 JSON 错误体、X-Request-ID 与一条结构化日志。
type Forwarder struct {
	handler server.ProxyHandler
	logger  *logrus.Logger
}

// NewForwarder 创建 Forwarder。
func NewForwarder(handler server.ProxyHandler, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		handler: handler,
		logger:  logger,
	}
}

// Handle 实现 server.ProxyHandler。
func (f *Forwarder) Handle(c fiber.Ctx, set *behavior.FunctionSet) error {
	requestID := server.RequestID(c)
	if f.handler == nil {
		return f.respondMissingHandler(c, set, requestID)
	}
	return f.invokeHandler(c, set, requestID)
}

func (f *Forwarder) respondMissingHandler(c fiber.Ctx, set *behavior.FunctionSet, requestID string) error {
	f.logEdgeError(c, set, "edge_handler_missing", nil, requestID)
	setRequestIDHeader(c, requestID)
	return c.Status(fiber.StatusInternalServerError).
		JSON(fiber.Map{"error": "edge_handler_missing"})
}

func (f *Forwarder) invokeHandler(c fiber.Ctx, set *behavior.FunctionSet, requestID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = f.respondHandlerPanic(c, set, r, requestID)
		}
	}()
	return f.handler.Handle(c, set)
}

func (f *Forwarder) respondHandlerPanic(c fiber.Ctx, set *behavior.FunctionSet, recovered interface{}, requestID string) error {
	f.logEdgeError(c, set, "edge_function_panic", fmt.Errorf("panic: %v", recovered), requestID)
	// panic 可能发生在部分响应头写入之后，这里重置为干净的错误响应。
	c.Response().Reset()
	setRequestIDHeader(c, requestID)
	return c.Status(fiber.StatusInternalServerError).
		JSON(fiber.Map{"error": "edge_function_panic"})
}

func setRequestIDHeader(c fiber.Ctx, requestID string) {
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
}

func (f *Forwarder) logEdgeError(c fiber.Ctx, set *behavior.FunctionSet, code string, err error, requestID string) {
	if f.logger == nil {
		return
	}
	fields := f.behaviorFields(c, set, requestID)
	fields["action"] = "edge"
	fields["error"] = code
	if err != nil {
		f.logger.WithFields(fields).Error(err.Error())
		return
	}
	f.logger.WithFields(fields).Error("edge handler unavailable")
}

func (f *Forwarder) behaviorFields(c fiber.Ctx, set *behavior.FunctionSet, requestID string) logrus.Fields {
	pattern, kind := "", ""
	if set != nil {
		pattern = set.Pattern()
		kind = string(set.Origin().Kind())
	}
	fields := logging.RequestFields(pattern, c.Method(), string(c.Request().URI().Path()), kind, false)
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
