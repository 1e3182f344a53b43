package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
)

// MethodPurge 是清空缓存的控制动词，与普通请求方法区分。
const MethodPurge = "PURGE"

// ProxyHandler describes the component that runs a matched request through
// the edge lifecycle. It allows injecting fake handlers during tests.
type ProxyHandler interface {
	Handle(fiber.Ctx, *behavior.FunctionSet) error
}

// ProxyHandlerFunc adapts a function to the ProxyHandler interface.
type ProxyHandlerFunc func(fiber.Ctx, *behavior.FunctionSet) error

// Handle makes ProxyHandlerFunc satisfy ProxyHandler.
func (f ProxyHandlerFunc) Handle(c fiber.Ctx, set *behavior.FunctionSet) error {
	return f(c, set)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *behavior.Registry
	Proxy      ProxyHandler
	ListenPort int
}

const (
	contextKeyBehavior  = "_edgesim_behavior"
	contextKeyRequestID = "_edgesim_request_id"
)

// NewApp builds a Fiber application with path-based behavior matching and
// structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("behavior registry is required")
	}
	if opts.Proxy == nil {
		return nil, errors.New("proxy handler is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	methods := append(append([]string(nil), fiber.DefaultMethods...), MethodPurge)
	app := fiber.New(fiber.Config{
		CaseSensitive:  true,
		RequestMethods: methods,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		set, ok := BehaviorFromContext(c)
		if !ok {
			// Registry 总有 "*"，这里只在中间件被绕过时触发。
			set = opts.Registry.Default()
		}
		return opts.Proxy.Handle(c, set)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并按请求路径匹配 FunctionSet。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		path := string(c.Request().URI().Path())
		if isDiagnosticsPath(path) {
			return c.Next()
		}

		set := opts.Registry.Match(path)
		opts.Logger.WithFields(logrus.Fields{
			"action":     "behavior_match",
			"path":       path,
			"behavior":   set.Pattern(),
			"request_id": reqID,
		}).Debug("behavior matched")

		c.Locals(contextKeyBehavior, set)
		return c.Next()
	}
}

// BehaviorFromContext returns the FunctionSet selected by the router middleware.
func BehaviorFromContext(c fiber.Ctx) (*behavior.FunctionSet, bool) {
	if value := c.Locals(contextKeyBehavior); value != nil {
		if set, ok := value.(*behavior.FunctionSet); ok {
			return set, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// IsPurge reports whether the request uses the PURGE control verb.
func IsPurge(c fiber.Ctx) bool {
	return strings.EqualFold(c.Method(), MethodPurge)
}

// isDiagnosticsPath 判断保留前缀 /-/：该前缀下的路径只交给诊断路由，不参与 behavior 匹配，也不进入生命周期。
func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
