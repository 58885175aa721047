// Package chartcache holds the in-memory tick and candle store. State is
// per-symbol: an ordered tick history plus, for every resolution, a bounded
// history of completed candles and at most one active (in-progress) candle.
// Buckets close lazily: the active candle is retired only when a tick for a
// later bucket arrives or an external writer overwrites its slot.
package chartcache

import (
	"sort"
	"sync"
	"time"

	"ChartServer/internal/domain/models"
	"ChartServer/internal/market"
	"ChartServer/internal/resolution"
	xlogger "ChartServer/pkg/logger"
)

// tickCacheLimit bounds the per-symbol tick history.
const tickCacheLimit = 20_000_000

// skewTolerance is how far ahead of the wall clock a tick timestamp may be
// before the tick is dropped.
const skewTolerance = 60 * time.Second

// defaultCandleLimit applies to resolutions missing from candleLimits.
const defaultCandleLimit = 1000

// candleLimits bounds the completed-candle history per resolution. The
// active candle is exempt while in progress.
var candleLimits = map[resolution.Resolution]int{
	resolution.Tick:           604800,
	resolution.OneSecond:      604800,
	resolution.ThreeSeconds:   201600,
	resolution.FiveSeconds:    120960,
	resolution.TenSeconds:     60480,
	resolution.ThirtySeconds:  20160,
	resolution.OneMinute:      10080,
	resolution.ThreeMinutes:   3360,
	resolution.FiveMinutes:    2016,
	resolution.TenMinutes:     1008,
	resolution.FifteenMinutes: 672,
	resolution.OneHour:        720,
	resolution.ThreeHours:     1440,
	resolution.FiveHours:      1296,
	resolution.TwelveHours:    360,
	resolution.OneDay:         365,
	resolution.ThreeDays:      122,
	resolution.OneWeek:        52,
	resolution.OneMonth:       12,
}

// RetentionLimit returns the completed-candle bound for a resolution.
func RetentionLimit(r resolution.Resolution) int {
	if limit, ok := candleLimits[r]; ok {
		return limit
	}
	return defaultCandleLimit
}

// symbolState is the mutable aggregate owned by the cache for one symbol.
// completed and active are indexed by resolution.
type symbolState struct {
	mu        sync.RWMutex
	ticks     []models.Tick                     // ascending by Timestamp, one entry per millisecond
	completed [resolution.Count][]models.Candle // ascending by StartTime
	active    [resolution.Count]*models.Candle
}

// Cache is the concurrent per-symbol tick/candle store. The symbol table is
// built once at construction and never changes, so lookups need no lock;
// each symbol's state is guarded by its own reader/writer lock.
type Cache struct {
	states map[market.Symbol]*symbolState
	log    *xlogger.Logger
	now    func() time.Time
}

// New builds an empty cache with eagerly allocated state for every symbol in
// the catalog.
func New(log *xlogger.Logger) *Cache {
	states := make(map[market.Symbol]*symbolState, len(market.All()))
	for _, s := range market.All() {
		states[s] = &symbolState{}
	}
	return &Cache{states: states, log: log, now: time.Now}
}

// SetClock overrides the time source used by the clock-skew guard.
func (c *Cache) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// AddTick validates and inserts one tick, then advances the incremental
// rollup of every fixed-interval resolution. Future-dated ticks beyond the
// skew tolerance are dropped silently.
func (c *Cache) AddTick(symbol market.Symbol, tick *models.Tick) error {
	if symbol == "" || tick == nil {
		return ErrNilData
	}
	if tick.Price <= 0 {
		return ErrInvalidTickPrice
	}
	st, ok := c.states[symbol]
	if !ok {
		return ErrSymbolNotFound
	}

	if tick.Timestamp > c.now().Add(skewTolerance).UnixMilli() {
		if c.log != nil {
			c.log.Warn("tick dropped: future timestamp",
				xlogger.String("symbol", symbol.String()),
				xlogger.Int64("timestamp", tick.Timestamp))
		}
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.ticks = insertTick(st.ticks, *tick)
	for len(st.ticks) > tickCacheLimit {
		st.ticks = st.ticks[1:]
	}

	for _, r := range resolution.All() {
		st.roll(symbol, r, *tick)
	}
	return nil
}

// AddTicks inserts a batch under a single lock acquisition. Entries with an
// absent timestamp or a non-positive price are filtered out; the rest are
// applied in ascending time order. Overflow eviction runs once for the
// whole batch.
func (c *Cache) AddTicks(symbol market.Symbol, ticks []models.Tick) error {
	if symbol == "" || len(ticks) == 0 {
		return ErrNilData
	}
	st, ok := c.states[symbol]
	if !ok {
		return ErrSymbolNotFound
	}

	sorted := make([]models.Tick, 0, len(ticks))
	for _, t := range ticks {
		if t.Timestamp != 0 && t.Price > 0 {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	st.mu.Lock()
	defer st.mu.Unlock()

	for _, t := range sorted {
		st.ticks = insertTick(st.ticks, t)
		for _, r := range resolution.All() {
			st.roll(symbol, r, t)
		}
	}

	if excess := len(st.ticks) - tickCacheLimit; excess > 0 {
		st.ticks = st.ticks[excess:]
		if c.log != nil {
			c.log.Debug("evicted excess ticks",
				xlogger.String("symbol", symbol.String()),
				xlogger.Int("count", excess))
		}
	}
	return nil
}

// GetTicks returns up to count most recent ticks, ascending by time.
func (c *Cache) GetTicks(symbol market.Symbol, count int) ([]models.Tick, error) {
	if symbol == "" || count <= 0 {
		return nil, ErrNilData
	}
	st, ok := c.states[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	start := 0
	if n := len(st.ticks); count < n {
		start = n - count
	}
	out := make([]models.Tick, len(st.ticks)-start)
	copy(out, st.ticks[start:])
	return out, nil
}

// GetTicksBetween returns ticks with start <= Timestamp <= end, ascending.
func (c *Cache) GetTicksBetween(symbol market.Symbol, start, end int64) ([]models.Tick, error) {
	if symbol == "" {
		return nil, ErrNilData
	}
	if start > end {
		return nil, ErrInvalidTimeRange
	}
	st, ok := c.states[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	lo := sort.Search(len(st.ticks), func(i int) bool { return st.ticks[i].Timestamp >= start })
	hi := sort.Search(len(st.ticks), func(i int) bool { return st.ticks[i].Timestamp > end })
	out := make([]models.Tick, hi-lo)
	copy(out, st.ticks[lo:hi])
	return out, nil
}

// GetLatestTick returns the most recent tick. ok is false when the symbol is
// unknown or has no ticks yet.
func (c *Cache) GetLatestTick(symbol market.Symbol) (models.Tick, bool) {
	st, found := c.states[symbol]
	if !found {
		return models.Tick{}, false
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	if len(st.ticks) == 0 {
		return models.Tick{}, false
	}
	return st.ticks[len(st.ticks)-1], true
}

// AddCandle inserts or overwrites the completed-candle entry at the candle's
// bucket start. The active-candle slot is untouched, so the window rollup
// path and the incremental path coexist: last writer wins per bucket key.
func (c *Cache) AddCandle(symbol market.Symbol, r resolution.Resolution, candle *models.Candle) error {
	if symbol == "" || candle == nil {
		return ErrNilData
	}
	if !r.IsValid() {
		return ErrResolutionNotFound
	}
	st, ok := c.states[symbol]
	if !ok {
		return ErrSymbolNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.completed[r] = insertCandle(st.completed[r], *candle)
	limit := RetentionLimit(r)
	for len(st.completed[r]) > limit {
		st.completed[r] = st.completed[r][1:]
	}
	return nil
}

// GetCandles returns up to count most recent completed candles ascending by
// bucket start. When fewer than count completed candles exist, the active
// candle (if any) is blended in as the most recent element.
func (c *Cache) GetCandles(symbol market.Symbol, r resolution.Resolution, count int) ([]models.Candle, error) {
	if symbol == "" || count <= 0 {
		return nil, ErrNilData
	}
	if !r.IsValid() {
		return nil, ErrResolutionNotFound
	}
	st, ok := c.states[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	hist := st.completed[r]
	out := make([]models.Candle, 0, count+1)
	for i := len(hist) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, hist[i])
	}
	if ac := st.active[r]; ac != nil && len(out) < count {
		out = append(out, models.Candle{})
		copy(out[1:], out)
		out[0] = *ac
	}
	reverse(out)
	return out, nil
}

// GetCandlesBetween returns completed candles whose bucket start falls in
// the half-open range [start, end), ascending, with the active candle
// appended when its bucket start is inside the range.
func (c *Cache) GetCandlesBetween(symbol market.Symbol, r resolution.Resolution, start, end int64) ([]models.Candle, error) {
	if symbol == "" {
		return nil, ErrNilData
	}
	if start > end {
		return nil, ErrInvalidTimeRange
	}
	if !r.IsValid() {
		return nil, ErrResolutionNotFound
	}
	st, ok := c.states[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	hist := st.completed[r]
	lo := sort.Search(len(hist), func(i int) bool { return hist[i].StartTime >= start })
	hi := sort.Search(len(hist), func(i int) bool { return hist[i].StartTime >= end })
	out := make([]models.Candle, hi-lo, hi-lo+1)
	copy(out, hist[lo:hi])

	if ac := st.active[r]; ac != nil && ac.StartTime >= start && ac.StartTime < end {
		out = append(out, *ac)
	}
	return out, nil
}

// GetLatestCandle returns the completed candle with the greatest bucket
// start across all resolutions of the symbol. The active candle does not
// count. ok is false when no resolution has a completed candle.
func (c *Cache) GetLatestCandle(symbol market.Symbol) (models.Candle, bool) {
	st, found := c.states[symbol]
	if !found {
		return models.Candle{}, false
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	var latest models.Candle
	var have bool
	for _, hist := range st.completed {
		if len(hist) == 0 {
			continue
		}
		last := hist[len(hist)-1]
		if !have || last.StartTime > latest.StartTime {
			latest = last
			have = true
		}
	}
	return latest, have
}

// roll advances the incremental rollup of one resolution with a new tick.
// Resolutions without a fixed interval (monthly) are skipped; their
// histories are only writable through AddCandle.
func (st *symbolState) roll(symbol market.Symbol, r resolution.Resolution, tick models.Tick) {
	intervalMillis, ok := r.IntervalMillis()
	if !ok {
		return
	}
	start, err := resolution.Truncate(tick.Timestamp, r)
	if err != nil {
		return
	}

	ac := st.active[r]
	if ac == nil || ac.StartTime != start {
		if ac != nil {
			// Retire the previous bucket verbatim.
			st.completed[r] = insertCandle(st.completed[r], *ac)
			limit := RetentionLimit(r)
			for len(st.completed[r]) > limit {
				st.completed[r] = st.completed[r][1:]
			}
		}
		st.active[r] = &models.Candle{
			Symbol:     symbol,
			Resolution: r,
			StartTime:  start,
			EndTime:    start + intervalMillis,
			Open:       tick.Price,
			High:       tick.Price,
			Low:        tick.Price,
			Close:      tick.Price,
			Volume:     tick.Qty(),
			TickCount:  1,
		}
		return
	}

	if tick.Price > ac.High {
		ac.High = tick.Price
	}
	if tick.Price < ac.Low {
		ac.Low = tick.Price
	}
	ac.Close = tick.Price
	ac.TickCount++
	if tick.Quantity != nil {
		ac.Volume += *tick.Quantity
	} else {
		// Quantity-less ticks reset the running volume. Kept as-is for wire
		// compatibility with existing consumers.
		ac.Volume = 0
	}
}

// insertTick keeps ticks ascending with one entry per timestamp: a tick at
// an existing timestamp replaces the stored one.
func insertTick(ticks []models.Tick, t models.Tick) []models.Tick {
	n := len(ticks)
	if n == 0 || ticks[n-1].Timestamp < t.Timestamp {
		return append(ticks, t)
	}
	i := sort.Search(n, func(i int) bool { return ticks[i].Timestamp >= t.Timestamp })
	if i < n && ticks[i].Timestamp == t.Timestamp {
		ticks[i] = t
		return ticks
	}
	ticks = append(ticks, models.Tick{})
	copy(ticks[i+1:], ticks[i:])
	ticks[i] = t
	return ticks
}

// insertCandle keeps candles ascending by StartTime, overwriting on an
// equal bucket key.
func insertCandle(candles []models.Candle, c models.Candle) []models.Candle {
	n := len(candles)
	if n == 0 || candles[n-1].StartTime < c.StartTime {
		return append(candles, c)
	}
	i := sort.Search(n, func(i int) bool { return candles[i].StartTime >= c.StartTime })
	if i < n && candles[i].StartTime == c.StartTime {
		candles[i] = c
		return candles
	}
	candles = append(candles, models.Candle{})
	copy(candles[i+1:], candles[i:])
	candles[i] = c
	return candles
}

func reverse(c []models.Candle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}
