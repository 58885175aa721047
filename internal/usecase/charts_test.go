package usecase

import (
	"errors"
	"testing"
	"time"

	"ChartServer/internal/chartcache"
	"ChartServer/internal/domain/models"
	"ChartServer/internal/market"
	"ChartServer/internal/resolution"
	xlogger "ChartServer/pkg/logger"
)

func newTestUseCase(t *testing.T) (*ChartsUseCase, *chartcache.Cache) {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cache := chartcache.New(log)
	cache.SetClock(func() time.Time { return time.UnixMilli(1633017600000) })
	return NewChartsUseCase(cache), cache
}

func TestGetCandlesUnknownInputs(t *testing.T) {
	uc, _ := newTestUseCase(t)

	if _, err := uc.GetCandles(GetCandlesParams{Symbol: "NOPE", Resolution: "1m", Count: 10}); !errors.Is(err, market.ErrUnknownSymbol) {
		t.Fatalf("unknown symbol: got %v", err)
	}
	if _, err := uc.GetCandles(GetCandlesParams{Symbol: "BTC", Resolution: "2h", Count: 10}); !errors.Is(err, resolution.ErrUnknownResolution) {
		t.Fatalf("unknown resolution: got %v", err)
	}
}

func TestGetTicksFlow(t *testing.T) {
	uc, cache := newTestUseCase(t)

	_ = cache.AddTick("ETH", &models.Tick{Price: 52000, Quantity: models.QtyPtr(3), Timestamp: 1633017500000})

	res, err := uc.GetTicks(GetTicksParams{Symbol: "ETH", Count: 10})
	if err != nil {
		t.Fatalf("GetTicks: %v", err)
	}
	if res.Count != 1 || res.Ticks[0].Price != 52000 {
		t.Fatalf("result = %+v", res)
	}

	latest, err := uc.GetLatestTick("ETH")
	if err != nil {
		t.Fatalf("GetLatestTick: %v", err)
	}
	if latest == nil || latest.Price != 52000 {
		t.Fatalf("latest = %+v", latest)
	}

	// Instruments without ticks report absence, not an error.
	latest, err = uc.GetLatestTick("SOL")
	if err != nil {
		t.Fatalf("GetLatestTick empty: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil latest, got %+v", latest)
	}
}

func TestCatalogListings(t *testing.T) {
	uc, _ := newTestUseCase(t)

	symbols := uc.Symbols()
	if len(symbols) != 63 {
		t.Fatalf("symbols = %d", len(symbols))
	}
	resolutions := uc.Resolutions()
	if len(resolutions) != 19 {
		t.Fatalf("resolutions = %d", len(resolutions))
	}

	var monthly *models.ResolutionInfo
	for i := range resolutions {
		if resolutions[i].Label == "1M" {
			monthly = &resolutions[i]
		}
	}
	if monthly == nil || monthly.IntervalMillis != 0 {
		t.Fatalf("monthly entry = %+v", monthly)
	}
}
