package models

// Requests for chart HTTP endpoints. Defined in domain for consistency and reuse.

type CandlesRequest struct {
	Symbol     string `query:"symbol" json:"symbol" validate:"required"`
	Resolution string `query:"resolution" json:"resolution" default:"1m"`
	Count      int    `query:"count" json:"count" default:"500" validate:"gte=1,lte=20000"`
}

type CandlesRangeRequest struct {
	Symbol     string `query:"symbol" json:"symbol" validate:"required"`
	Resolution string `query:"resolution" json:"resolution" default:"1m"`
	From       int64  `query:"from" json:"from" validate:"required"`
	To         int64  `query:"to" json:"to" validate:"required"`
}

type TicksRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Count  int    `query:"count" json:"count" default:"500" validate:"gte=1,lte=100000"`
}

type TicksRangeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   int64  `query:"from" json:"from" validate:"required"`
	To     int64  `query:"to" json:"to" validate:"required"`
}

type LatestRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

// SymbolInfo describes one instrument catalog entry.
type SymbolInfo struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Quote string `json:"quote"`
}

// ResolutionInfo describes one resolution catalog entry.
type ResolutionInfo struct {
	Label          string `json:"label"`
	Code           string `json:"code"`
	IntervalMillis int64  `json:"intervalMillis,omitempty"`
}
