package circuitbreaker

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	cb := New(2, 1, time.Minute)

	if !cb.Allow() {
		t.Fatalf("关闭状态应放行请求")
	}
	cb.Failure()
	cb.Failure()

	if cb.State() != StateOpen {
		t.Fatalf("连续失败达到阈值后应打开, 当前状态 %v", cb.State())
	}
	if cb.Allow() {
		t.Errorf("打开状态应拒绝请求")
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New(1, 2, 10*time.Millisecond)

	cb.Failure()
	if cb.State() != StateOpen {
		t.Fatalf("失败后应打开")
	}

	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("超时后应进入半开并放行探测请求")
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("应处于半开状态, 当前 %v", cb.State())
	}

	cb.Success()
	cb.Success()
	if cb.State() != StateClosed {
		t.Errorf("半开状态下连续成功应关闭, 当前 %v", cb.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(1, 1, 10*time.Millisecond)

	cb.Failure()
	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("超时后应放行探测请求")
	}

	cb.Failure()
	if cb.State() != StateOpen {
		t.Errorf("半开状态下失败应重新打开, 当前 %v", cb.State())
	}
}
