package models

import "time"

// Direction is the aggressor side of a trade print.
type Direction int8

const (
	DirectionNeutral Direction = iota
	DirectionBuy
	DirectionSell
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return "neutral"
	}
}

// ParseDirection converts a raw string to a Direction. Unknown values map to neutral.
func ParseDirection(s string) Direction {
	switch s {
	case "buy", "B":
		return DirectionBuy
	case "sell", "S":
		return DirectionSell
	default:
		return DirectionNeutral
	}
}

// TradePrint is one executed trade report. Immutable once produced.
type TradePrint struct {
	Code      string    `json:"code"`
	Seq       int64     `json:"seq"` // monotonic within a window
	Time      time.Time `json:"time"`
	Price     float64   `json:"price"`
	Turnover  float64   `json:"turnover"` // price * size
	Direction Direction `json:"direction"`
}

// Snapshot is an immutable, versioned, fully-populated print sequence for one
// security at one producer write. Consumers must not mutate Prints.
type Snapshot struct {
	Code    string       `json:"code"`
	Version uint64       `json:"version"`
	Taken   time.Time    `json:"taken"`
	Prints  []TradePrint `json:"prints"`
}
