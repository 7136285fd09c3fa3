package models

// Requests for the monitoring HTTP endpoints. Defined in domain for consistency and reuse.

type RecordsRequest struct {
	Direction string `query:"direction" json:"direction" default:"all" validate:"oneof=buy sell all"`
}

type TopRecordsRequest struct {
	Direction string `query:"direction" json:"direction" default:"buy" validate:"oneof=buy sell"`
	N         int    `query:"n" json:"n" default:"5" validate:"gte=1,lte=100"`
}

type SnapshotRequest struct {
	Version uint64 `query:"version" json:"version"`
}

type HistoryRequest struct {
	Code  string `query:"code" json:"code" validate:"required"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type EventsRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
