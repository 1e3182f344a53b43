package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/cache"
	"github.com/any-hub/edgesim/internal/config"
	"github.com/any-hub/edgesim/internal/functions"
	"github.com/any-hub/edgesim/internal/lifecycle"
	"github.com/any-hub/edgesim/internal/logging"
	"github.com/any-hub/edgesim/internal/metrics"
	"github.com/any-hub/edgesim/internal/origin"
	"github.com/any-hub/edgesim/internal/proxy"
	"github.com/any-hub/edgesim/internal/server"
	"github.com/any-hub/edgesim/internal/server/routes"
	"github.com/any-hub/edgesim/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	purgeOnly   bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

// listen 可在测试中替换，避免真正占用端口。
var listen = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["functions"] = len(cfg.Functions)
		fields["origins"] = len(cfg.Origins)
		fields["handlers"] = cfg.HandlerNames()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	if opts.purgeOnly {
		if err := store.Purge(context.Background()); err != nil {
			fmt.Fprintf(stdErr, "清空缓存失败: %v\n", err)
			return 1
		}
		fields := logging.BaseFields("cache_purge", opts.configPath)
		fields["storage_path"] = cfg.Global.StoragePath
		logger.WithFields(fields).Info("缓存已清空")
		return 0
	}

	// 启动顺序：配置 → 缓存 → BehaviorRegistry → LifecycleEngine → Fiber server，
	// 所有请求共享同一个注册表、缓存与上游 HTTP 客户端。
	httpClient := origin.NewUpstreamClient(cfg.Global.UpstreamTimeout.DurationValue())
	registry, err := behavior.Build(cfg.Bindings(), cfg.OriginSpecs(), functions.Default(), origin.WithHTTPClient(httpClient))
	if err != nil {
		fmt.Fprintf(stdErr, "构建 Behavior 注册表失败: %v\n", err)
		return 1
	}

	recorder := metrics.New()
	engine, err := lifecycle.New(registry, store, logger, lifecycle.Options{
		DisableCache:                       cfg.Global.DisableCache,
		ViewerResponseOnOriginShortCircuit: cfg.Global.ViewerResponseOnOriginShortCircuit,
		Metrics:                            recorder,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化生命周期引擎失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["behaviors"] = len(registry.List())
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_enabled"] = engine.CacheEnabled()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	forwarder := proxy.NewForwarder(proxy.NewHandler(engine, logger), logger)
	if err := startHTTPServer(cfg, engine, recorder, forwarder, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("edgesim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		purgeOnly  bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 EDGESIM_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&purgeOnly, "purge", false, "清空 StoragePath 下的缓存后退出")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("EDGESIM_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		purgeOnly:   purgeOnly,
	}, nil
}

func startHTTPServer(cfg *config.Config, engine *lifecycle.Engine, recorder *metrics.Recorder, proxyHandler server.ProxyHandler, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   engine.Registry(),
		Proxy:      proxyHandler,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterBehaviorRoutes(app, engine.Registry())
	routes.RegisterCacheRoutes(app, engine, logger)
	routes.RegisterMetricsRoutes(app, recorder)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return listen(app, fmt.Sprintf(":%d", port))
}
