package middleware

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 限制对上游的请求速率
type RateLimiter struct {
	limiter  *rate.Limiter
	requests atomic.Int64
}

// NewRateLimiter 创建速率限制器，window内最多maxRequests次请求；maxRequests<=0表示不限速
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 || window <= 0 {
		return &RateLimiter{}
	}
	every := window / time.Duration(maxRequests)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Wait 阻塞直到允许下一次请求或ctx结束
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if rl.limiter != nil {
		if err := rl.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	rl.requests.Add(1)
	return nil
}

// Allow 非阻塞检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}
	if rl.limiter != nil && !rl.limiter.Allow() {
		return false
	}
	rl.requests.Add(1)
	return true
}

// Used 返回已放行的请求数
func (rl *RateLimiter) Used() int64 {
	if rl == nil {
		return 0
	}
	return rl.requests.Load()
}

// SleepFunc 可被ctx中断的等待函数
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep 默认的等待实现
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy 指数退避重试策略
type RetryPolicy struct {
	MaxRetries    int           // 最大重试次数，总尝试次数为 MaxRetries+1
	InitialDelay  time.Duration // 首次重试前的等待
	BackoffFactor float64       // 每次重试等待的倍数
	Jitter        float64       // 随机抖动比例，[0, Jitter*delay)
	Sleep         SleepFunc
	Rand          func() float64
	// OnRetry 在每次等待前调用
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Delay 返回第n次重试（从0开始）的基础等待时间
func (p RetryPolicy) Delay(n int) time.Duration {
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(n)))
}

// ErrNoAttempts fn一次都没有执行
var ErrNoAttempts = errors.New("没有执行任何尝试")

// RetryWithBackoff 带指数退避的重试，返回实际尝试次数与最后一次错误
func RetryWithBackoff(ctx context.Context, p RetryPolicy, fn func(attempt int) error) (int, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	random := p.Rand
	if random == nil {
		random = rand.Float64
	}

	lastErr := ErrNoAttempts
	attempts := 0
	for n := 0; n <= maxRetries; n++ {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}
		attempts++
		lastErr = fn(n)
		if lastErr == nil {
			return attempts, nil
		}
		if n == maxRetries {
			break
		}

		delay := p.Delay(n)
		if p.Jitter > 0 {
			delay += time.Duration(random() * p.Jitter * float64(delay))
		}
		if p.OnRetry != nil {
			p.OnRetry(n+1, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempts, err
		}
	}
	return attempts, lastErr
}
