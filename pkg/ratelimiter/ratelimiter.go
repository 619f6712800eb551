package ratelimiter

import (
	"sync"
	"time"
)

// Limiter 定义了限流器的通用接口。
type Limiter interface {
	// Allow 报告当前请求是否被放行。
	Allow() bool
}

// TokenBucket 是一个基于令牌桶算法的限流器。
// 令牌以固定速率补充，请求消耗令牌，桶空时请求被拒绝。
type TokenBucket struct {
	mu       sync.Mutex
	rate     float64   // 每秒补充的令牌数
	capacity float64   // 桶容量
	tokens   float64   // 当前令牌数
	last     time.Time // 上次补充时间
}

// NewTokenBucket 创建一个令牌桶限流器。桶初始为满。
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

// Allow 尝试消耗一个令牌。
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
