package usecase

import (
	"fmt"

	"ChartServer/internal/chartcache"
	"ChartServer/internal/domain/models"
	"ChartServer/internal/market"
	"ChartServer/internal/resolution"
)

// ChartsUseCase provides read access to the tick/candle cache for the API.
type ChartsUseCase struct {
	cache *chartcache.Cache
}

func NewChartsUseCase(cache *chartcache.Cache) *ChartsUseCase {
	return &ChartsUseCase{cache: cache}
}

type GetCandlesParams struct {
	Symbol     string
	Resolution string
	Count      int
}

type GetCandlesRangeParams struct {
	Symbol     string
	Resolution string
	From       int64
	To         int64
}

type GetCandlesResult struct {
	Symbol     string          `json:"symbol"`
	Resolution string          `json:"resolution"`
	Count      int             `json:"count"`
	Candles    []models.Candle `json:"candles"`
}

type GetTicksParams struct {
	Symbol string
	Count  int
}

type GetTicksRangeParams struct {
	Symbol string
	From   int64
	To     int64
}

type GetTicksResult struct {
	Symbol string        `json:"symbol"`
	Count  int           `json:"count"`
	Ticks  []models.Tick `json:"ticks"`
}

func (uc *ChartsUseCase) resolve(symbol, res string) (market.Symbol, resolution.Resolution, error) {
	sym, err := market.FromName(symbol)
	if err != nil {
		return "", 0, fmt.Errorf("symbol %q: %w", symbol, err)
	}
	r, err := resolution.FromLabel(res)
	if err != nil {
		return "", 0, fmt.Errorf("resolution %q: %w", res, err)
	}
	return sym, r, nil
}

func (uc *ChartsUseCase) GetCandles(p GetCandlesParams) (*GetCandlesResult, error) {
	sym, r, err := uc.resolve(p.Symbol, p.Resolution)
	if err != nil {
		return nil, err
	}

	candles, err := uc.cache.GetCandles(sym, r, p.Count)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	return &GetCandlesResult{
		Symbol:     sym.String(),
		Resolution: r.Label(),
		Count:      len(candles),
		Candles:    candles,
	}, nil
}

func (uc *ChartsUseCase) GetCandlesRange(p GetCandlesRangeParams) (*GetCandlesResult, error) {
	sym, r, err := uc.resolve(p.Symbol, p.Resolution)
	if err != nil {
		return nil, err
	}

	candles, err := uc.cache.GetCandlesBetween(sym, r, p.From, p.To)
	if err != nil {
		return nil, fmt.Errorf("get candles range: %w", err)
	}

	return &GetCandlesResult{
		Symbol:     sym.String(),
		Resolution: r.Label(),
		Count:      len(candles),
		Candles:    candles,
	}, nil
}

// GetLatestCandle returns the most recent completed candle across every
// resolution, or (nil, nil) when the instrument has none yet.
func (uc *ChartsUseCase) GetLatestCandle(symbol string) (*models.Candle, error) {
	sym, err := market.FromName(symbol)
	if err != nil {
		return nil, fmt.Errorf("symbol %q: %w", symbol, err)
	}

	candle, ok := uc.cache.GetLatestCandle(sym)
	if !ok {
		return nil, nil
	}
	return &candle, nil
}

func (uc *ChartsUseCase) GetTicks(p GetTicksParams) (*GetTicksResult, error) {
	sym, err := market.FromName(p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("symbol %q: %w", p.Symbol, err)
	}

	ticks, err := uc.cache.GetTicks(sym, p.Count)
	if err != nil {
		return nil, fmt.Errorf("get ticks: %w", err)
	}

	return &GetTicksResult{Symbol: sym.String(), Count: len(ticks), Ticks: ticks}, nil
}

func (uc *ChartsUseCase) GetTicksRange(p GetTicksRangeParams) (*GetTicksResult, error) {
	sym, err := market.FromName(p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("symbol %q: %w", p.Symbol, err)
	}

	ticks, err := uc.cache.GetTicksBetween(sym, p.From, p.To)
	if err != nil {
		return nil, fmt.Errorf("get ticks range: %w", err)
	}

	return &GetTicksResult{Symbol: sym.String(), Count: len(ticks), Ticks: ticks}, nil
}

// GetLatestTick returns the most recent tick, or (nil, nil) when the
// instrument has none yet.
func (uc *ChartsUseCase) GetLatestTick(symbol string) (*models.Tick, error) {
	sym, err := market.FromName(symbol)
	if err != nil {
		return nil, fmt.Errorf("symbol %q: %w", symbol, err)
	}

	tick, ok := uc.cache.GetLatestTick(sym)
	if !ok {
		return nil, nil
	}
	return &tick, nil
}

// Symbols lists the instrument catalog.
func (uc *ChartsUseCase) Symbols() []models.SymbolInfo {
	all := market.All()
	out := make([]models.SymbolInfo, 0, len(all))
	for _, s := range all {
		out = append(out, models.SymbolInfo{Name: s.String(), Code: s.Code(), Quote: market.Quote.String()})
	}
	return out
}

// Resolutions lists the resolution catalog.
func (uc *ChartsUseCase) Resolutions() []models.ResolutionInfo {
	all := resolution.All()
	out := make([]models.ResolutionInfo, 0, len(all))
	for _, r := range all {
		info := models.ResolutionInfo{Label: r.Label(), Code: r.Code()}
		if millis, ok := r.IntervalMillis(); ok {
			info.IntervalMillis = millis
		}
		out = append(out, info)
	}
	return out
}
