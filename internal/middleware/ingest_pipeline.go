package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TapeWatch/internal/domain/models"
	domrepo "TapeWatch/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs. The print
// window satisfies it through a small adapter.
type Proc interface {
	Process(ctx context.Context, p *models.TradePrint) error
}

// IngestPipeline sits between the print stream and the in-memory window.
// It validates, throttles runaway feeds per security, and buffers prints
// when the downstream is temporarily unavailable.
type IngestPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.TradePrint
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// per-security last accepted time, throttle state
	lastSeen map[string]time.Time
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max accepted prints per second per security.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size used when downstream fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   200, // quote gateways burst well past this on open auction
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.TradePrint, p.bufSize)
	return p
}

// Start launches background flushing of buffered prints.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case pr := <-p.bufCh:
				if pr == nil {
					continue
				}
				if err := p.proc.Process(ctx, pr); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- pr:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards one print, buffering on
// downstream errors.
func (p *IngestPipeline) Process(ctx context.Context, pr *models.TradePrint) error {
	start := time.Now()
	if err := validatePrint(pr); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(pr.Code, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, pr); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- pr:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validatePrint(pr *models.TradePrint) error {
	if pr == nil {
		return fmt.Errorf("print nil")
	}
	if pr.Code == "" {
		return fmt.Errorf("code empty")
	}
	if pr.Time.IsZero() {
		return fmt.Errorf("time invalid")
	}
	if pr.Price < 0 || pr.Turnover < 0 {
		return fmt.Errorf("negative price/turnover")
	}
	return nil
}

func (p *IngestPipeline) allow(code string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[code]
	if last.IsZero() {
		p.lastSeen[code] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[code] = now
	return true
}
