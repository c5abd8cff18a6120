package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/application/cartclient"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

// cartMsg carries a cart.changed event into the program
type cartMsg struct {
	state  cart.State
	source string
	seq    uint64
	at     time.Time
}

type syncDoneMsg struct {
	err error
	at  time.Time
}

// WatchModel is the bubbletea model behind cartctl watch
type WatchModel struct {
	session    string
	managerID  string
	state      cart.State
	lastSource string
	lastSeq    uint64
	lastChange time.Time
	lastSync   time.Time
	syncing    bool
	err        error
	styles     Styles
	forceSync  func() error
	now        func() time.Time
}

// NewWatchModel creates the view for session starting from state.
// forceSync runs when the user presses s.
func NewWatchModel(session cart.SessionID, managerID string, state cart.State, forceSync func() error) WatchModel {
	return WatchModel{
		session:   session.String(),
		managerID: managerID,
		state:     state,
		styles:    DefaultStyles(),
		forceSync: forceSync,
		now:       time.Now,
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "s":
			if m.syncing || m.forceSync == nil {
				return m, nil
			}
			m.syncing = true
			sync, now := m.forceSync, m.now
			return m, func() tea.Msg {
				return syncDoneMsg{err: sync(), at: now()}
			}
		}
	case cartMsg:
		// a slower delivery of an earlier write
		if msg.seq != 0 && msg.seq <= m.lastSeq {
			return m, nil
		}
		m.lastSeq = msg.seq
		m.state = msg.state
		m.lastSource = msg.source
		m.lastChange = msg.at
	case syncDoneMsg:
		m.syncing = false
		m.err = msg.err
		if msg.err == nil {
			m.lastSync = msg.at
		}
	}
	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("cartctl watch"))
	b.WriteString(m.styles.Muted.Render("  session " + m.session))
	b.WriteString("\n\n")
	b.WriteString(RenderCart(m.state, m.styles))
	b.WriteString("\n\n")

	status := "idle"
	if m.syncing {
		status = "syncing…"
	}
	if !m.lastSync.IsZero() {
		status += ", last manual sync " + m.lastSync.Format("15:04:05")
	}
	if !m.lastChange.IsZero() {
		status += fmt.Sprintf(", changed %s by %s", m.lastChange.Format("15:04:05"), m.describeSource())
	}
	b.WriteString(m.styles.Muted.Render(status))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("sync failed: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("s sync · q quit"))
	return m.styles.Border.Render(b.String()) + "\n"
}

func (m WatchModel) describeSource() string {
	switch m.lastSource {
	case m.managerID:
		return "server"
	case cartclient.SourceExternal:
		return "another process"
	case cartclient.SourceLocal:
		return "this device"
	default:
		return m.lastSource
	}
}

const unloadWait = 5 * time.Second

func runWatch(ctx context.Context, c *Client, out io.Writer, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	session, err := c.Sessions.GetOrCreate(ctx)
	if err != nil {
		return err
	}

	model := NewWatchModel(session, c.Manager.ID(), c.Local.Read(ctx), func() error {
		return c.Manager.ForceSync(ctx)
	})
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(out), tea.WithAltScreen())

	unsubscribe := c.Notifier.OnChange(func(_ context.Context, ev cart.ChangeEvent) {
		if ev.Type != cart.EventCartChanged {
			return
		}
		program.Send(cartMsg{state: ev.State, source: ev.Source, seq: ev.Seq, at: time.Now()})
	})
	defer unsubscribe()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if c.files != nil {
		go func() {
			err := c.files.Watch(watchCtx, func(key string) {
				if key == cartclient.StorageKeyCart {
					c.Local.Refresh(watchCtx)
				}
			})
			if err != nil {
				c.Logger.Warn("Cart file watch stopped", zap.Error(err))
			}
		}()
	}

	c.Manager.Start(ctx)
	_, runErr := program.Run()

	c.Manager.HandleUnload()
	c.Manager.Stop()
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unloadWait)
	defer cancel()
	if err := c.Manager.Wait(waitCtx); err != nil {
		c.Logger.Warn("Unload flush did not finish", zap.Error(err))
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
