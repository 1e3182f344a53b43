package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/any-hub/edgesim/internal/config"
	"github.com/any-hub/edgesim/internal/version"
)

// ServiceName 写入每条日志的 service 字段。
const ServiceName = "edgesim"

// 轮转参数缺省值，配置为 0 时使用。
const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
)

// InitLogger 根据全局配置初始化 JSON 结构化日志；每条日志都带 service/version 字段，
// 日志目录不可用时降级到 stdout 并记录 logger_fallback。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	output, outErr := buildOutput(cfg)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.AddHook(newDefaultFieldsHook())

	// 第三方库经由 logrus 全局 logger 输出时保持同样的格式与级别。
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(outErr.Error())
	}

	return logger, nil
}

// defaultFieldsHook 为每条日志补充 service/version，调用方显式设置的同名字段优先。
type defaultFieldsHook struct {
	fields logrus.Fields
}

func newDefaultFieldsHook() *defaultFieldsHook {
	return &defaultFieldsHook{fields: logrus.Fields{
		"service": ServiceName,
		"version": version.Version,
	}}
}

func (h *defaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *defaultFieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

// buildOutput 根据配置创建日志输出 Writer；失败时降级到 stdout 并返回错误。
func buildOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}

	dir := filepath.Dir(cfg.LogFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}

	return newRotator(cfg), nil
}

func newRotator(cfg config.GlobalConfig) *lumberjack.Logger {
	maxSize := cfg.LogMaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := cfg.LogMaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}
}
