package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheGetTypedDest(t *testing.T) {
	type quote struct {
		Code       string  `json:"code"`
		OpenPrice  float64 `json:"open_price"`
		FloatShare float64 `json:"float_share"`
	}
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := []quote{
		{Code: "000001", OpenPrice: 10.5, FloatShare: 1e9},
		{Code: "000002", OpenPrice: 3.2, FloatShare: 5e8},
	}
	if err := mc.Set(ctx, "quotes", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out []quote
	if err := mc.Get(ctx, "quotes", &out); err != nil {
		t.Fatalf("get into typed dest: %v", err)
	}
	if len(out) != 2 || out[0].Code != "000001" || out[1].OpenPrice != 3.2 {
		t.Fatalf("roundtrip = %+v", out)
	}
}

func TestMemoryCacheGetStringAndAny(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "s", "hello", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var s string
	if err := mc.Get(ctx, "s", &s); err != nil || s != "hello" {
		t.Fatalf("string dest = (%q, %v)", s, err)
	}
	var any interface{}
	if err := mc.Get(ctx, "s", &any); err != nil || any != "hello" {
		t.Fatalf("interface dest = (%v, %v)", any, err)
	}
}

func TestMemoryCacheGetMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	if err := mc.Get(context.Background(), "absent", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("miss = %v, want ErrCacheMiss", err)
	}
}
