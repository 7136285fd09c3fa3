package profile

import (
	"context"
	"testing"
	"time"

	"TapeWatch/pkg/cache"
	"TapeWatch/pkg/logger"
)

type fakeLister struct {
	quotes []Quote
	calls  int
}

func (f *fakeLister) ListSecurities(ctx context.Context, blocks []string) ([]Quote, error) {
	f.calls++
	return f.quotes, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestRegistryPrime(t *testing.T) {
	lister := &fakeLister{quotes: []Quote{
		{Code: "000001", Name: "one", OpenPrice: 10, FloatShares: 1_000_000},
		{Code: "000002", Name: "halted", OpenPrice: 0, FloatShares: 500_000},
		{Code: "000003", Name: "no-float", OpenPrice: 8, FloatShares: 0},
	}}
	r := NewRegistry(lister, nil, time.Hour, []string{"main-board"}, testLogger(t))

	if err := r.Prime(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}

	p, ok := r.Profile("000001")
	if !ok || p.MarketValue != 10_000_000 {
		t.Fatalf("profile = (%+v, %v)", p, ok)
	}
	// Non-positive price or shares excludes the security entirely.
	if _, ok := r.Profile("000002"); ok {
		t.Fatal("zero open price must be excluded")
	}
	if _, ok := r.Profile("000003"); ok {
		t.Fatal("zero float shares must be excluded")
	}
	if got := r.Codes(); len(got) != 1 || got[0] != "000001" {
		t.Fatalf("codes = %v", got)
	}
}

func TestRegistryCachesUniverse(t *testing.T) {
	lister := &fakeLister{quotes: []Quote{
		{Code: "000001", Name: "one", OpenPrice: 10, FloatShares: 100},
	}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	r := NewRegistry(lister, mem, time.Hour, []string{"main-board"}, testLogger(t))

	if err := r.Prime(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}
	if err := r.Prime(context.Background()); err != nil {
		t.Fatalf("second prime: %v", err)
	}
	if lister.calls != 1 {
		t.Fatalf("lister calls = %d, want 1 (second prime served from cache)", lister.calls)
	}

	// RePrime invalidates and goes back upstream.
	lister.quotes = append(lister.quotes, Quote{Code: "000002", Name: "two", OpenPrice: 5, FloatShares: 100})
	if err := r.RePrime(context.Background()); err != nil {
		t.Fatalf("reprime: %v", err)
	}
	if lister.calls != 2 {
		t.Fatalf("lister calls = %d, want 2 after reprime", lister.calls)
	}
	if _, ok := r.Profile("000002"); !ok {
		t.Fatal("reprime must pick up new securities")
	}
}
