package usecase

import (
	"context"

	"TapeWatch/internal/domain/models"
	drepo "TapeWatch/internal/domain/repository"
	mid "TapeWatch/internal/middleware"
	"TapeWatch/internal/repository"
)

// PrintCollector pulls trade prints off the live stream and lands them in
// the in-memory window the monitoring cycle reads from.
type PrintCollector struct {
	stream  drepo.PrintStream
	window  *repository.MemoryPrintWindow
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewPrintCollector creates a new PrintCollector instance.
func NewPrintCollector(stream drepo.PrintStream, window *repository.MemoryPrintWindow, metrics drepo.Metrics, pipe *mid.IngestPipeline) *PrintCollector {
	return &PrintCollector{stream: stream, window: window, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the print stream is connected.
func (c *PrintCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *PrintCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	prCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, prCh, errCh)
	return nil
}

func (c *PrintCollector) consume(ctx context.Context, prCh <-chan *models.TradePrint, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case p := <-prCh:
			if p == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, p)
			} else {
				_ = c.window.Append(p)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *PrintCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}

// WindowProc adapts the print window to the pipeline's Proc interface.
type WindowProc struct {
	Window *repository.MemoryPrintWindow
}

func (w WindowProc) Process(ctx context.Context, p *models.TradePrint) error {
	return w.Window.Append(p)
}
