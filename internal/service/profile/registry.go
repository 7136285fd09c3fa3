package profile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"TapeWatch/internal/domain/models"
	"TapeWatch/pkg/cache"
	"TapeWatch/pkg/logger"
)

// Quote is the static pre-open data the registry derives a profile from.
type Quote struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	OpenPrice   float64 `json:"open_price"`
	FloatShares float64 `json:"float_shares"`
}

// Lister expands the configured block lists into the security universe.
type Lister interface {
	ListSecurities(ctx context.Context, blocks []string) ([]Quote, error)
}

// Registry resolves security profiles once per session. Market value is the
// opening reference price times float shares; securities where either is
// non-positive are skipped, not failed. A layered cache in front of the
// lister makes RePrime cheap while the upstream block expansion is slow.
type Registry struct {
	lister Lister
	cache  cache.Service
	ttl    time.Duration
	blocks []string
	log    *logger.Logger

	mu       sync.RWMutex
	profiles map[string]models.SecurityProfile
	codes    []string
}

// NewRegistry creates an unprimed registry.
func NewRegistry(lister Lister, c cache.Service, ttl time.Duration, blocks []string, log *logger.Logger) *Registry {
	return &Registry{
		lister:   lister,
		cache:    c,
		ttl:      ttl,
		blocks:   blocks,
		log:      log,
		profiles: make(map[string]models.SecurityProfile),
	}
}

func (r *Registry) cacheKey() string {
	return cache.GenerateKey("profiles", strings.Join(r.blocks, ","))
}

// Prime loads the universe and computes profiles. Call before the monitor
// starts; subsequent calls replace the resolved set.
func (r *Registry) Prime(ctx context.Context) error {
	quotes, err := r.loadQuotes(ctx)
	if err != nil {
		return fmt.Errorf("list securities: %w", err)
	}

	profiles := make(map[string]models.SecurityProfile, len(quotes))
	codes := make([]string, 0, len(quotes))
	skipped := 0
	for _, q := range quotes {
		if q.Code == "" || q.OpenPrice <= 0 || q.FloatShares <= 0 {
			skipped++
			continue
		}
		profiles[q.Code] = models.SecurityProfile{
			Code:        q.Code,
			Name:        q.Name,
			MarketValue: q.OpenPrice * q.FloatShares,
		}
		codes = append(codes, q.Code)
	}

	r.mu.Lock()
	r.profiles = profiles
	r.codes = codes
	r.mu.Unlock()

	r.log.Info("profiles primed",
		logger.Int("resolved", len(codes)),
		logger.Int("skipped", skipped),
		logger.Strings("blocks", r.blocks))
	return nil
}

// loadQuotes consults the cache first and falls back to the lister.
func (r *Registry) loadQuotes(ctx context.Context) ([]Quote, error) {
	var quotes []Quote
	if r.cache != nil {
		if err := r.cache.Get(ctx, r.cacheKey(), &quotes); err == nil && len(quotes) > 0 {
			return quotes, nil
		}
	}
	quotes, err := r.lister.ListSecurities(ctx, r.blocks)
	if err != nil {
		return nil, err
	}
	if r.cache != nil && len(quotes) > 0 {
		if err := r.cache.Set(ctx, r.cacheKey(), quotes, r.ttl); err != nil {
			r.log.Warn("profile cache write failed", logger.Error(err))
		}
	}
	return quotes, nil
}

// RePrime invalidates the cached universe and reloads from the lister.
func (r *Registry) RePrime(ctx context.Context) error {
	if r.cache != nil {
		if err := r.cache.Delete(ctx, r.cacheKey()); err != nil {
			r.log.Warn("profile cache invalidate failed", logger.Error(err))
		}
	}
	return r.Prime(ctx)
}

// Profile returns the resolved profile for code. The second return is false
// when the security was never resolved, which is distinct from a zero
// market value.
func (r *Registry) Profile(code string) (models.SecurityProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[code]
	return p, ok
}

// Codes lists resolved securities in load order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}
