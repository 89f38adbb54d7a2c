package dashboard

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// Bridge carries page renders from fetcher goroutines into the Bubble Tea
// program. Renders are coalesced per entity, so Send never blocks: a page
// that renders twice before the program reads keeps only its latest view.
type Bridge struct {
	mu      sync.Mutex
	pending map[ledger.Entity]entity.View
	order   []ledger.Entity

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates an open Bridge.
func NewBridge() *Bridge {
	return &Bridge{
		pending: make(map[ledger.Entity]entity.View),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Send queues v, replacing any unread view of the same entity. A view from an
// earlier mount never replaces one from a later mount.
func (b *Bridge) Send(v entity.View) {
	b.mu.Lock()
	old, ok := b.pending[v.Entity]
	if ok && old.Mount > v.Mount {
		b.mu.Unlock()
		return
	}
	if !ok {
		b.order = append(b.order, v.Entity)
	}
	b.pending[v.Entity] = v
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Wait returns a command that blocks until views are queued or the bridge is
// closed. Re-issue it after every ViewsMsg.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.notify:
			return ViewsMsg{Views: b.drain()}
		case <-b.done:
			return BridgeClosedMsg{}
		}
	}
}

// Close releases any pending Wait with a BridgeClosedMsg.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) drain() []entity.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entity.View, 0, len(b.order))
	for _, e := range b.order {
		out = append(out, b.pending[e])
	}
	clear(b.pending)
	b.order = b.order[:0]
	return out
}
