// Package dedupe drops readings that were already ingested.
//
// Force-plate exports are often re-uploaded or overlap when two export
// windows are merged. A reading is a duplicate only when athlete, date,
// trial, metric and value all match, so two trials on the same day are
// both kept even when they score the same.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/okian/platewatch/internal/domain/model"
)

// Deduper records seen reading keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// Key builds the identity of a reading.
func Key(r model.Reading) string {
	v := "-"
	if r.Present {
		v = strconv.FormatFloat(r.Value, 'g', -1, 64)
	}
	return r.AthleteID + "|" + r.Date.Format("2006-01-02") + "|" + strconv.Itoa(r.Trial) + "|" + r.Metric + "|" + v
}

// inMemoryDeduper keeps keys in a map. In bounded mode the oldest key is
// evicted once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // oldest at front; used only in bounded mode
	maxSize int        // <= 0 means unbounded
}

// NewInMemoryDeduper creates a deduper; unbounded unless WithMaxSize is given.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:  make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 {
		if d.order.Len() >= d.maxSize {
			oldest := d.order.Front()
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(string))
		}
		d.seen[key] = d.order.PushBack(key)
	} else {
		d.seen[key] = nil
	}
	return false
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
