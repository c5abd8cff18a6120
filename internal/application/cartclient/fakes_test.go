package cartclient

import (
	"context"
	"sync"
	"time"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// fakeRemote is an in-process server record store with a ticking clock
type fakeRemote struct {
	mu      sync.Mutex
	now     time.Time
	records map[cart.SessionID]*cart.SyncRecord

	fetchErr  error
	pushErr   error
	deleteErr error

	fetches int
	pushes  []PushRequest
	// blocks Fetch until closed when set
	fetchGate chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		now:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		records: make(map[cart.SessionID]*cart.SyncRecord),
	}
}

func (f *fakeRemote) Fetch(ctx context.Context, sessionID cart.SessionID) (*cart.SyncRecord, error) {
	f.mu.Lock()
	gate := f.fetchGate
	f.fetches++
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	record, ok := f.records[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *record
	copied.Lines = cart.CloneLines(record.Lines)
	return &copied, nil
}

func (f *fakeRemote) Push(ctx context.Context, req PushRequest) (PushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, req)
	if f.pushErr != nil {
		return PushResult{}, f.pushErr
	}
	f.now = f.now.Add(time.Second)
	record := cart.NewSyncRecord(req.SessionID, req.Lines, req.Origin, f.now)
	f.records[req.SessionID] = record
	return PushResult{UpdatedAt: record.UpdatedAt, ItemsCount: record.ItemsCount()}, nil
}

func (f *fakeRemote) Delete(ctx context.Context, sessionID cart.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, sessionID)
	return nil
}

// seed writes a record as if another client had pushed it
func (f *fakeRemote) seed(sessionID cart.SessionID, lines []cart.Line, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[sessionID] = cart.NewSyncRecord(sessionID, lines, cart.OriginMini, at)
	if at.After(f.now) {
		f.now = at
	}
}

func (f *fakeRemote) record(sessionID cart.SessionID) *cart.SyncRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[sessionID]
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeRemote) lastPush() PushRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes[len(f.pushes)-1]
}

func line(productID string, qty int) cart.Line {
	return cart.Line{Key: productID, ProductID: productID, DisplayName: productID, UnitPrice: 10000, Quantity: qty}
}
