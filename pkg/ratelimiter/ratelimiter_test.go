package ratelimiter

import "testing"

func TestTokenBucketExhaustion(t *testing.T) {
	// 补充速率极低，桶耗尽后请求应被拒绝。
	b := NewTokenBucket(0.001, 2)

	if !b.Allow() || !b.Allow() {
		t.Fatalf("前两个请求应当放行")
	}
	if b.Allow() {
		t.Errorf("桶耗尽后请求应被拒绝")
	}
}

func TestTokenBucketDefaults(t *testing.T) {
	b := NewTokenBucket(0, 0)
	if !b.Allow() {
		t.Errorf("非法参数应回退到可用的默认值")
	}
}
