package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

func waitMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return")
		return nil
	}
}

func TestBridge_CoalescesPerEntity(t *testing.T) {
	// Given two renders of accounts and one of tokens
	b := NewBridge()
	b.Send(entity.View{Entity: ledger.Accounts, Status: store.StatusInitiated})
	b.Send(entity.View{Entity: ledger.Tokens, Status: store.StatusSuccess})
	b.Send(entity.View{Entity: ledger.Accounts, Status: store.StatusSuccess})

	// When the program waits
	msg, ok := waitMsg(t, b.Wait()).(ViewsMsg)
	if !ok {
		t.Fatalf("Wait() produced %T, want ViewsMsg", msg)
	}

	// Then each entity arrives once, latest view, in first-send order
	if len(msg.Views) != 2 {
		t.Fatalf("views = %d, want 2", len(msg.Views))
	}
	if msg.Views[0].Entity != ledger.Accounts || msg.Views[0].Status != store.StatusSuccess {
		t.Errorf("views[0] = %+v", msg.Views[0])
	}
	if msg.Views[1].Entity != ledger.Tokens {
		t.Errorf("views[1] = %+v", msg.Views[1])
	}
}

func TestBridge_LaterMountWins(t *testing.T) {
	b := NewBridge()
	b.Send(entity.View{Entity: ledger.Accounts, Status: store.StatusInitiated, Mount: 2})
	b.Send(entity.View{Entity: ledger.Accounts, Status: store.StatusSuccess, Mount: 1})

	views := b.drain()

	if len(views) != 1 || views[0].Mount != 2 || views[0].Status != store.StatusInitiated {
		t.Errorf("views = %+v, want the mount 2 view", views)
	}
}

func TestBridge_SendNeverBlocks(t *testing.T) {
	b := NewBridge()
	done := make(chan struct{})
	go func() {
		for range 1000 {
			b.Send(entity.View{Entity: ledger.Accounts})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked with no reader")
	}
}

func TestBridge_CloseReleasesWait(t *testing.T) {
	b := NewBridge()
	cmd := b.Wait()
	b.Close()
	b.Close()

	if _, ok := waitMsg(t, cmd).(BridgeClosedMsg); !ok {
		t.Error("Wait() after Close should produce BridgeClosedMsg")
	}
}
