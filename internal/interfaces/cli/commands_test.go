package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/localstore"
)

// memoryRemote is a server stand-in keyed by session
type memoryRemote struct {
	mu      sync.Mutex
	records map[cart.SessionID]*cart.SyncRecord
	clock   time.Time
	down    bool
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{
		records: map[cart.SessionID]*cart.SyncRecord{},
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

var errServerDown = errors.New("server down")

func (r *memoryRemote) Fetch(_ context.Context, id cart.SessionID) (*cart.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errServerDown
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	copied.Lines = cart.CloneLines(rec.Lines)
	return &copied, nil
}

func (r *memoryRemote) Push(_ context.Context, req cartclient.PushRequest) (cartclient.PushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return cartclient.PushResult{}, errServerDown
	}
	r.clock = r.clock.Add(time.Second)
	rec := cart.NewSyncRecord(req.SessionID, req.Lines, req.Origin, r.clock)
	r.records[req.SessionID] = rec
	return cartclient.PushResult{UpdatedAt: rec.UpdatedAt, ItemsCount: rec.ItemsCount()}, nil
}

func (r *memoryRemote) Delete(_ context.Context, id cart.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errServerDown
	}
	delete(r.records, id)
	return nil
}

func (r *memoryRemote) setDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *memoryRemote) quantities(id cart.SessionID) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	return cart.QuantitiesByKey(rec.Lines)
}

const testSession = "sess_cli"

func newTestClient(t *testing.T, remote *memoryRemote) *Client {
	t.Helper()
	storage := localstore.NewMemoryStorage()
	require.NoError(t, storage.Set(cartclient.StorageKeySession, []byte(testSession)))
	return Assemble(storage, remote, cartclient.SyncManagerConfig{Interval: time.Hour}, zaptest.NewLogger(t))
}

func runCmd(t *testing.T, c *Client, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), c, &out, args)
	return out.String(), err
}

func TestRun_AddPushesToServer(t *testing.T) {
	remote := newMemoryRemote()
	c := newTestClient(t, remote)

	out, err := runCmd(t, c, "add", "-name", "Áo thun", "-price", "150000", "ao-thun", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Áo thun")
	assert.Contains(t, out, "300.000 ₫")

	_, err = runCmd(t, c, "add", "-price", "150000", "ao-thun")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"ao-thun": 3}, remote.quantities(testSession))
}

func TestRun_AddMergesServerCartFirst(t *testing.T) {
	remote := newMemoryRemote()
	other := newTestClient(t, remote)
	_, err := runCmd(t, other, "add", "-price", "10000", "B", "3")
	require.NoError(t, err)

	c := newTestClient(t, remote)
	_, err = runCmd(t, c, "add", "-price", "10000", "A", "1")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 1, "B": 3}, remote.quantities(testSession))
}

func TestRun_SetAndRemove(t *testing.T) {
	remote := newMemoryRemote()
	c := newTestClient(t, remote)

	_, err := runCmd(t, c, "add", "-price", "10000", "A", "1")
	require.NoError(t, err)
	_, err = runCmd(t, c, "add", "-price", "20000", "-variant", "XL", "B", "1")
	require.NoError(t, err)

	_, err = runCmd(t, c, "set", "A", "5")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 5, "B::xl": 1}, remote.quantities(testSession))

	_, err = runCmd(t, c, "remove", "B::xl")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 5}, remote.quantities(testSession))

	_, err = runCmd(t, c, "set", "missing", "2")
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestRun_OfflineWriteStaysLocal(t *testing.T) {
	remote := newMemoryRemote()
	remote.setDown(true)
	c := newTestClient(t, remote)

	out, err := runCmd(t, c, "add", "-price", "10000", "A", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "sync pending")
	assert.Equal(t, 2, c.Local.Read(context.Background()).ItemCount())

	remote.setDown(false)
	_, err = runCmd(t, c, "sync")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2}, remote.quantities(testSession))
}

func TestRun_Clear(t *testing.T) {
	remote := newMemoryRemote()
	c := newTestClient(t, remote)
	_, err := runCmd(t, c, "add", "-price", "10000", "A", "2")
	require.NoError(t, err)

	out, err := runCmd(t, c, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart cleared")
	assert.Nil(t, remote.quantities(testSession))
	assert.True(t, c.Local.Read(context.Background()).IsEmpty())

	_, err = runCmd(t, c, "add", "-price", "10000", "A", "1")
	require.NoError(t, err)
	remote.setDown(true)
	out, err = runCmd(t, c, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "server record not deleted")
	assert.True(t, c.Local.Read(context.Background()).IsEmpty())
}

func TestRun_ListAndSession(t *testing.T) {
	c := newTestClient(t, newMemoryRemote())

	out, err := runCmd(t, c, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart is empty")

	out, err = runCmd(t, c, "session")
	require.NoError(t, err)
	assert.Equal(t, testSession+"\n", out)
}

func TestRun_Usage(t *testing.T) {
	c := newTestClient(t, newMemoryRemote())

	tests := [][]string{
		nil,
		{"bogus"},
		{"add"},
		{"add", "A", "two"},
		{"set", "A"},
		{"remove"},
		{"list", "extra"},
	}
	for _, args := range tests {
		out, err := runCmd(t, c, args...)
		assert.ErrorIs(t, err, ErrUsage, "%v", args)
		assert.Contains(t, out, "usage: cartctl", "%v", args)
	}

	_, err := runCmd(t, c, "add", "A", "0")
	assert.ErrorIs(t, err, cart.ErrLineQuantity)
}
