package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TapeWatch/internal/domain/models"
	drepo "TapeWatch/internal/domain/repository"
	"TapeWatch/internal/repository"
)

// KafkaPrintsHandler consumes broker-relayed trade prints and lands them in
// the in-memory window, the alternative ingest backend to the live stream.
type KafkaPrintsHandler struct {
	topic   string
	window  *repository.MemoryPrintWindow
	metrics drepo.Metrics
}

func NewKafkaPrintsHandler(topic string, window *repository.MemoryPrintWindow, metrics drepo.Metrics) *KafkaPrintsHandler {
	return &KafkaPrintsHandler{topic: topic, window: window, metrics: metrics}
}

func (h *KafkaPrintsHandler) Topic() string { return h.topic }

/// incoming message schema: {code, seq, t, price, amount, bs}
func (h *KafkaPrintsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Code   string  `json:"code"`
		Seq    int64   `json:"seq"`
		T      int64   `json:"t"`
		Price  float64 `json:"price"`
		Amount float64 `json:"amount"`
		BS     int     `json:"bs"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	dir := models.DirectionNeutral
	switch m.BS {
	case 0:
		dir = models.DirectionBuy
	case 1:
		dir = models.DirectionSell
	}
	if err := h.window.Append(&models.TradePrint{
		Code:      m.Code,
		Seq:       m.Seq,
		Time:      time.Unix(m.T, 0),
		Price:     m.Price,
		Turnover:  m.Amount,
		Direction: dir,
	}); err != nil {
		h.metrics.RecordError("consumer_append")
		return err
	}
	return nil
}
