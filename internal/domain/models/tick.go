package models

// Tick is a single trade observation. Price is a fixed-point integer scaled
// by 1e9. Quantity is nil when the feed did not report one. Timestamp is
// epoch milliseconds.
type Tick struct {
	Price     int64  `json:"price"`
	Quantity  *int64 `json:"quantity,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Qty returns the quantity or 0 when absent.
func (t Tick) Qty() int64 {
	if t.Quantity == nil {
		return 0
	}
	return *t.Quantity
}

// QtyPtr is a convenience for building ticks with a present quantity.
func QtyPtr(v int64) *int64 { return &v }
