package cartclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"go.uber.org/zap"
)

// Default timings
const (
	DefaultSyncInterval  = 5 * time.Second
	DefaultUnloadTimeout = 5 * time.Second
)

// SyncManagerConfig holds SyncManager settings
type SyncManagerConfig struct {
	// ID tags this manager's local writes; generated when empty
	ID string
	// Origin is sent with every push
	Origin        cart.Origin
	Interval      time.Duration
	UnloadTimeout time.Duration
}

// SyncManager keeps one client's local cart converged with the server record.
// It pulls on a fixed interval and pushes whenever another writer changes
// local storage. Pulls never overlap; pushes may overlap a pull.
type SyncManager struct {
	cfg      SyncManagerConfig
	local    *LocalCartStore
	sessions *SessionProvider
	remote   RemoteCart
	notifier cart.Notifier
	logger   *zap.Logger

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	unsubscribe func()
	lastApplied time.Time

	pulling atomic.Bool
	// detached work (event pushes, unload flushes)
	inflight sync.WaitGroup
}

// NewSyncManager creates an idle manager
func NewSyncManager(
	cfg SyncManagerConfig,
	local *LocalCartStore,
	sessions *SessionProvider,
	remote RemoteCart,
	notifier cart.Notifier,
	logger *zap.Logger,
) *SyncManager {
	if cfg.ID == "" {
		cfg.ID = "sync-" + uuid.NewString()[:8]
	}
	if cfg.Origin == "" {
		cfg.Origin = cart.OriginWeb
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}
	if cfg.UnloadTimeout <= 0 {
		cfg.UnloadTimeout = DefaultUnloadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncManager{
		cfg:      cfg,
		local:    local,
		sessions: sessions,
		remote:   remote,
		notifier: notifier,
		logger:   logger.Named("sync_manager").With(zap.String("manager_id", cfg.ID)),
	}
}

// ID returns the source tag used for this manager's local writes
func (m *SyncManager) ID() string {
	return m.cfg.ID
}

// Start begins the pull loop and subscribes to local storage changes.
// Calling Start on a running manager does nothing.
func (m *SyncManager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	// requests outlive Stop
	workCtx := context.WithoutCancel(loopCtx)

	m.cancel = cancel
	m.running = true
	if m.notifier != nil {
		m.unsubscribe = m.notifier.OnChange(func(_ context.Context, event cart.ChangeEvent) {
			if event.Type != cart.EventStorageChanged || event.Source == m.cfg.ID {
				return
			}
			m.inflight.Add(1)
			go func() {
				defer m.inflight.Done()
				_ = m.PushToServer(workCtx, false)
			}()
		})
	}

	go m.loop(loopCtx, workCtx)
	m.logger.Info("Sync manager started", zap.Duration("interval", m.cfg.Interval))
}

func (m *SyncManager) loop(loopCtx, workCtx context.Context) {
	_ = m.PullFromServer(workCtx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			_ = m.PullFromServer(workCtx)
		}
	}
}

// Stop halts scheduling and unsubscribes. Requests already in flight complete.
func (m *SyncManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.running = false
	m.logger.Info("Sync manager stopped")
}

// Wait blocks until detached pushes and unload flushes finish or ctx is done
func (m *SyncManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the manager is started
func (m *SyncManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastApplied returns the newest server timestamp this manager has applied or produced
func (m *SyncManager) LastApplied() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastApplied
}

func (m *SyncManager) advance(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at.After(m.lastApplied) {
		m.lastApplied = at
	}
}

// PullFromServer fetches the server record and merges it into the local cart
// when it is newer than anything already applied. A pull that starts while
// another is in flight returns nil immediately.
func (m *SyncManager) PullFromServer(ctx context.Context) error {
	if !m.pulling.CompareAndSwap(false, true) {
		return nil
	}
	defer m.pulling.Store(false)

	sessionID, err := m.sessions.GetOrCreate(ctx)
	if err != nil {
		m.logger.Warn("Pull skipped: no session id", zap.Error(err))
		return err
	}

	record, err := m.remote.Fetch(ctx, sessionID)
	if err != nil {
		m.logger.Warn("Pull failed", zap.Error(err))
		return fmt.Errorf("pull: %w", err)
	}
	if record == nil {
		return nil
	}
	if !record.UpdatedAt.After(m.LastApplied()) {
		m.logger.Debug("Skipping stale record", zap.Time("updated_at", record.UpdatedAt))
		return nil
	}

	changed, state, err := m.local.MergeRemote(ctx, record.Lines, m.cfg.ID)
	if err != nil {
		m.logger.Warn("Failed to apply pulled cart", zap.Error(err))
		return fmt.Errorf("apply pulled cart: %w", err)
	}
	m.advance(record.UpdatedAt)

	if changed {
		m.logger.Debug("Applied remote cart",
			zap.Int("lines", len(state.Lines)),
			zap.String("origin", record.Origin.String()),
		)
	}
	return nil
}

// PushToServer sends the local cart to the server.
// With isUnloadFlush the push runs detached under a short deadline without
// retries and the call returns immediately.
func (m *SyncManager) PushToServer(ctx context.Context, isUnloadFlush bool) error {
	if !isUnloadFlush {
		return m.push(ctx, false)
	}

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.UnloadTimeout)
		defer cancel()
		_ = m.push(flushCtx, true)
	}()
	return nil
}

func (m *SyncManager) push(ctx context.Context, noRetry bool) error {
	sessionID, err := m.sessions.GetOrCreate(ctx)
	if err != nil {
		m.logger.Warn("Push skipped: no session id", zap.Error(err), zap.Bool("unload", noRetry))
		return err
	}

	state := m.local.Read(ctx)
	result, err := m.remote.Push(ctx, PushRequest{
		SessionID: sessionID,
		Lines:     state.Lines,
		Origin:    m.cfg.Origin,
		NoRetry:   noRetry,
	})
	if err != nil {
		m.logger.Warn("Push failed", zap.Error(err), zap.Bool("unload", noRetry))
		return fmt.Errorf("push: %w", err)
	}

	m.advance(result.UpdatedAt)
	m.logger.Debug("Pushed cart",
		zap.Int("items_count", result.ItemsCount),
		zap.Time("updated_at", result.UpdatedAt),
	)
	return nil
}

// ForceSync pulls then pushes immediately and returns the first error
func (m *SyncManager) ForceSync(ctx context.Context) error {
	pullErr := m.PullFromServer(ctx)
	pushErr := m.push(ctx, false)
	if pullErr != nil {
		return pullErr
	}
	return pushErr
}

// ClearCart empties the local cart then deletes the server record.
// A failed remote delete leaves the local clear in place and returns an
// error wrapping ErrRemoteClearFailed.
func (m *SyncManager) ClearCart(ctx context.Context) error {
	if _, err := m.local.Write(ctx, nil, m.cfg.ID); err != nil {
		return fmt.Errorf("clear local cart: %w", err)
	}

	sessionID, err := m.sessions.GetOrCreate(ctx)
	if err != nil {
		m.logger.Warn("Remote clear skipped: no session id", zap.Error(err))
		return err
	}
	if err := m.remote.Delete(ctx, sessionID); err != nil {
		m.logger.Warn("Remote clear failed", zap.Error(err))
		return errors.Join(ErrRemoteClearFailed, err)
	}
	return nil
}

// HandleUnload flushes the local cart when the client is going away.
// It does nothing while the manager is stopped.
func (m *SyncManager) HandleUnload() {
	if !m.IsRunning() {
		return
	}
	_ = m.PushToServer(context.Background(), true)
}
