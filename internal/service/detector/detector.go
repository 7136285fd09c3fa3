package detector

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"TapeWatch/internal/domain/models"
)

// ErrInvalidThreshold is returned when a scan is requested with a
// non-positive turnover threshold. This is a configuration error and must be
// surfaced before the monitoring cycle starts.
var ErrInvalidThreshold = errors.New("detector: threshold must be positive")

// ScanResult is the raw outcome of scanning one print history for one target
// direction: the largest run seen plus the tally of threshold-qualifying runs.
type ScanResult struct {
	Largest            models.Run
	QualifyingCount    int
	QualifyingTurnover float64
	WindowTurnover     float64 // all directions, whole window
	Found              bool    // at least one print of the target direction
}

// Constructor builds a fresh incremental detector for one (security,
// direction) pair.
type Constructor func(dir models.Direction, threshold float64) (*Incremental, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds a named detector constructor to the static table. Detector
// implementations are registered at startup, not discovered at runtime.
func Register(name string, ctor Constructor) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = ctor
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (Constructor, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("detector: unknown detector %q", name)
	}
	return ctor, nil
}

// Names lists registered detectors in stable order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(TurnoverRunDetector, func(dir models.Direction, threshold float64) (*Incremental, error) {
		return NewIncremental(dir, threshold)
	})
}

// TurnoverRunDetector is the name of the built-in run-turnover detector.
const TurnoverRunDetector = "turnover_run"
