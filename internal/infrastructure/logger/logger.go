package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.RWMutex
	// 全局日志实例
	log *zap.Logger
	// 当前的滚动文件，用于按天切割
	rotator *lumberjack.Logger
)

// 日志配置
type Config struct {
	// 日志级别: debug, info, warn, error, dpanic, panic, fatal
	Level string `mapstructure:"level"`
	// 是否输出到控制台
	Console bool `mapstructure:"console"`
	// 日志文件路径
	FilePath string `mapstructure:"file_path"`
	// 单个日志文件最大大小，单位MB
	MaxSize int `mapstructure:"max_size"`
	// 最多保留的旧日志文件数量
	MaxBackups int `mapstructure:"max_backups"`
	// 保留日志文件的最大天数
	MaxAge int `mapstructure:"max_age"`
	// 是否压缩旧日志文件
	Compress bool `mapstructure:"compress"`
	// 切割策略: size（默认）或 daily
	Rotation string `mapstructure:"rotation"`
}

// Init 初始化日志系统
func Init(config Config) error {
	// 设置默认值
	if config.Level == "" {
		config.Level = "info"
	}
	if config.FilePath == "" {
		config.FilePath = "logs/news-collector.log"
	}
	if config.MaxSize == 0 {
		config.MaxSize = 100
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 10
	}
	if config.MaxAge == 0 {
		config.MaxAge = 28
	}

	// 确保日志目录存在
	logDir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	// 解析日志级别
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("无效的日志级别 '%s': %w", config.Level, err)
	}

	encoderConfig := newEncoderConfig()

	var cores []zapcore.Core

	// 文件输出
	fileRotator := &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
	cores = append(cores, zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(fileRotator),
		level,
	))

	// 控制台输出（可选）
	if config.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	mu.Lock()
	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	rotator = fileRotator
	mu.Unlock()

	Info("日志系统初始化成功", "level", config.Level, "file", config.FilePath, "rotation", config.Rotation)
	return nil
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ReplaceCore 使用指定的core替换全局日志，返回恢复函数；测试中配合zaptest/observer使用
func ReplaceCore(core zapcore.Core) func() {
	mu.Lock()
	prev, prevRotator := log, rotator
	log = zap.New(core, zap.AddCallerSkip(1))
	rotator = nil
	mu.Unlock()

	return func() {
		mu.Lock()
		log, rotator = prev, prevRotator
		mu.Unlock()
	}
}

// StartDailyRotation 每天零点切割一次日志文件，直到ctx结束
func StartDailyRotation(ctx context.Context) {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				mu.RLock()
				r := rotator
				mu.RUnlock()
				if r == nil {
					continue
				}
				if err := r.Rotate(); err != nil {
					Warn("日志文件切割失败", "error", err)
				} else {
					Info("日志文件已按天切割")
				}
			}
		}
	}()
}

// Sync 同步日志缓冲区到输出
func Sync() error {
	if l := current(); l != nil {
		return l.Sync()
	}
	return nil
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func sugar() *zap.SugaredLogger {
	if l := current(); l != nil {
		return l.Sugar()
	}
	return nil
}

// Debug 记录调试级别日志
func Debug(msg string, keysAndValues ...interface{}) {
	if s := sugar(); s != nil {
		s.Debugw(msg, keysAndValues...)
	}
}

// Info 记录信息级别日志
func Info(msg string, keysAndValues ...interface{}) {
	if s := sugar(); s != nil {
		s.Infow(msg, keysAndValues...)
	}
}

// Warn 记录警告级别日志
func Warn(msg string, keysAndValues ...interface{}) {
	if s := sugar(); s != nil {
		s.Warnw(msg, keysAndValues...)
	}
}

// Error 记录错误级别日志
func Error(msg string, keysAndValues ...interface{}) {
	if s := sugar(); s != nil {
		s.Errorw(msg, keysAndValues...)
	}
}

// Fatal 记录致命错误日志并退出程序
func Fatal(msg string, keysAndValues ...interface{}) {
	if s := sugar(); s != nil {
		s.Fatalw(msg, keysAndValues...)
	}
}

// With 创建带有固定字段的日志记录器，例如一次运行的run_id
func With(keysAndValues ...interface{}) *FieldLogger {
	return &FieldLogger{fields: keysAndValues}
}

// FieldLogger 带有固定字段的日志记录器
type FieldLogger struct {
	fields []interface{}
}

func (f *FieldLogger) merge(keysAndValues []interface{}) []interface{} {
	kvs := make([]interface{}, 0, len(f.fields)+len(keysAndValues))
	kvs = append(kvs, f.fields...)
	return append(kvs, keysAndValues...)
}

// With 在当前字段基础上追加字段
func (f *FieldLogger) With(keysAndValues ...interface{}) *FieldLogger {
	return &FieldLogger{fields: f.merge(keysAndValues)}
}

// Debug 记录带字段的调试级别日志
func (f *FieldLogger) Debug(msg string, keysAndValues ...interface{}) {
	Debug(msg, f.merge(keysAndValues)...)
}

// Info 记录带字段的信息级别日志
func (f *FieldLogger) Info(msg string, keysAndValues ...interface{}) {
	Info(msg, f.merge(keysAndValues)...)
}

// Warn 记录带字段的警告级别日志
func (f *FieldLogger) Warn(msg string, keysAndValues ...interface{}) {
	Warn(msg, f.merge(keysAndValues)...)
}

// Error 记录带字段的错误级别日志
func (f *FieldLogger) Error(msg string, keysAndValues ...interface{}) {
	Error(msg, f.merge(keysAndValues)...)
}

// TimeTrack 记录函数执行时间
func TimeTrack(name string) func() {
	start := time.Now()
	return func() {
		Info("函数执行时间统计", "function", name, "duration", time.Since(start))
	}
}
