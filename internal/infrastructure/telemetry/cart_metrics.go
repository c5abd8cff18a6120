package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrOrigin    = attribute.Key("origin")
	AttrOperation = attribute.Key("operation")
	AttrFound     = attribute.Key("found")
)

// ItemBuckets are histogram boundaries for distinct lines per cart
var ItemBuckets = []float64{0, 1, 2, 5, 10, 20, 50, 100}

// CartMetrics records cart sync traffic
type CartMetrics struct {
	pulls  *Counter
	pushes *Counter
	clears *Counter
	errors *Counter
	items  *Histogram
}

// NewCartMetrics creates the cart sync instruments on meter
func NewCartMetrics(meter metric.Meter) (*CartMetrics, error) {
	var (
		m   CartMetrics
		err error
	)
	if m.pulls, err = NewCounter(meter, "cart_sync_pull_total", "Cart sync reads", "{request}"); err != nil {
		return nil, err
	}
	if m.pushes, err = NewCounter(meter, "cart_sync_push_total", "Cart sync writes", "{request}"); err != nil {
		return nil, err
	}
	if m.clears, err = NewCounter(meter, "cart_sync_clear_total", "Cart sync deletes", "{request}"); err != nil {
		return nil, err
	}
	if m.errors, err = NewCounter(meter, "cart_sync_errors_total", "Failed cart sync operations", "{error}"); err != nil {
		return nil, err
	}
	if m.items, err = NewHistogram(meter, "cart_sync_items", "Distinct lines per pushed cart", "{line}", ItemBuckets...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordPull counts a read
func (m *CartMetrics) RecordPull(ctx context.Context, found bool) {
	m.pulls.Inc(ctx, AttrFound.Bool(found))
}

// RecordPush counts a write and its size
func (m *CartMetrics) RecordPush(ctx context.Context, origin string, items int) {
	m.pushes.Inc(ctx, AttrOrigin.String(origin))
	m.items.Record(ctx, int64(items), AttrOrigin.String(origin))
}

// RecordClear counts a delete
func (m *CartMetrics) RecordClear(ctx context.Context) {
	m.clears.Inc(ctx)
}

// RecordError counts a failed operation
func (m *CartMetrics) RecordError(ctx context.Context, operation string) {
	m.errors.Inc(ctx, AttrOperation.String(operation))
}
