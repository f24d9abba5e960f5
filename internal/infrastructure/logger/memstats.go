package logger

import (
	"context"
	"runtime"
	"time"
)

// MemStatsMonitor 定时记录内存使用，供常驻的定时任务进程使用
type MemStatsMonitor struct {
	interval time.Duration
}

// NewMemStatsMonitor 创建一个新的内存统计监控器
func NewMemStatsMonitor(interval time.Duration) *MemStatsMonitor {
	return &MemStatsMonitor{interval: interval}
}

// Start 开始监控，ctx结束时停止；interval<=0时不启动
func (m *MemStatsMonitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logMemStats("内存使用统计")
			case <-ctx.Done():
				return
			}
		}
	}()
}

// LogMemStatsOnce 记录一次内存使用统计
func LogMemStatsOnce() {
	logMemStats("内存使用统计（单次）")
}

func logMemStats(msg string) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	Info(msg,
		"alloc_mb", stats.Alloc/1024/1024,
		"sys_mb", stats.Sys/1024/1024,
		"heap_alloc_mb", stats.HeapAlloc/1024/1024,
		"num_goroutine", runtime.NumGoroutine(),
		"num_gc", stats.NumGC)
}
