package circuitbreaker

import (
	"sync"
	"time"
)

// State 表示熔断器的状态。
type State int

const (
	StateClosed   State = iota // 关闭：请求正常通过
	StateOpen                  // 打开：请求被直接拒绝
	StateHalfOpen              // 半开：放行探测请求
)

// CircuitBreaker 是一个三态熔断器。连续失败超过阈值后打开，经过超时时间
// 进入半开状态放行探测请求，连续成功达到阈值后重新关闭。
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration

	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

// New 创建一个熔断器。
func New(failureThreshold, successThreshold uint32, timeout time.Duration) *CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            StateClosed,
	}
}

// Allow 报告请求是否可以通过。打开状态下超时后自动转入半开。
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.timeout {
			return false
		}
		cb.state = StateHalfOpen
		cb.successes = 0
	}
	return true
}

// Success 记录一次成功调用。
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

// Failure 记录一次失败调用。
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = time.Now()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	}
}

// State 返回当前状态。
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
