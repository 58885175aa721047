package models

import (
	"ChartServer/internal/market"
	"ChartServer/internal/resolution"
)

// Candle is an OHLCV aggregate over one bucket of one resolution. Prices are
// fixed-point integers scaled by 1e9; StartTime/EndTime are epoch millis.
// The invariant Low <= Open,Close <= High holds at all times while a candle
// is being updated in place.
type Candle struct {
	Symbol     market.Symbol         `json:"symbol"`
	Resolution resolution.Resolution `json:"resolution"`
	StartTime  int64                 `json:"startTime"`
	EndTime    int64                 `json:"endTime"`
	Open       int64                 `json:"open"`
	High       int64                 `json:"high"`
	Low        int64                 `json:"low"`
	Close      int64                 `json:"close"`
	Volume     int64                 `json:"volume"`
	TickCount  int                   `json:"tickCount"`
}
