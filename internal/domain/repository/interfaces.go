package repository

import (
	"context"
	"time"

	"TapeWatch/internal/domain/models"
)

// PrintStream is a live feed of trade prints (WebSocket or broker backed).
type PrintStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TradePrint, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// PrintSource serves the ordered print sequence for a security within a time
// window. May fail transiently; the monitoring cycle skips the security for
// that cycle without aborting others.
type PrintSource interface {
	FetchPrints(ctx context.Context, code string, from, to time.Time) ([]models.TradePrint, error)
}

// ProfileRegistry resolves static security profiles. Profiles are loaded
// before a session starts; securities it cannot resolve are excluded up
// front rather than retried every cycle.
type ProfileRegistry interface {
	Profile(code string) (models.SecurityProfile, bool)
	Codes() []string
	RePrime(ctx context.Context) error
}

// AlertSink receives emitted alerts (broker topic, archive table, ...).
type AlertSink interface {
	Publish(ctx context.Context, a *models.Alert) error
	Close() error
}

// AlertArchive persists alerts for after-session analysis. The archive is a
// sink, never recovery state: the monitoring core keeps everything in memory.
type AlertArchive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, a *models.Alert) error
	Query(ctx context.Context, code string, from, to time.Time, limit int) ([]*models.Alert, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordAlert(direction, code string)
	RecordError(kind string)
	RecordCycle(securities int, seconds float64)
	RecordLargestRun(code string, turnover float64)
	RecordLatency(op string, seconds float64)
}
