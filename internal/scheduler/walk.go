package scheduler

import (
	"math/rand"
	"time"

	"ChartServer/internal/domain/models"
)

// Walk is a clamped random-walk price simulator. Each step moves the
// price by up to ±5% and clamps the result to [min, max]. The running
// price is owned by the walk itself, not shared with anyone else.
type Walk struct {
	price int64
	min   int64
	max   int64
	rng   *rand.Rand
}

// NewWalk starts a walk at start, clamped to [min, max].
func NewWalk(start, min, max int64) *Walk {
	if start < min {
		start = min
	}
	if start > max {
		start = max
	}
	return &Walk{
		price: start,
		min:   min,
		max:   max,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Price returns the current price without advancing the walk.
func (w *Walk) Price() int64 {
	return w.price
}

// Next advances the walk one step and returns a synthetic tick stamped
// with the given time.
func (w *Walk) Next(now time.Time) models.Tick {
	rate := (w.rng.Float64()*10 - 5) / 100
	fluctuation := w.price * int64(rate*1_000_000) / 100_000_000

	w.price += fluctuation
	if w.price < w.min {
		w.price = w.min
	}
	if w.price > w.max {
		w.price = w.max
	}

	qty := int64(w.rng.Intn(100) + 1)
	return models.Tick{
		Price:     w.price,
		Quantity:  models.QtyPtr(qty),
		Timestamp: now.UnixMilli(),
	}
}
