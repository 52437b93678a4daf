package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/DukeRupert/proforma/internal/domain"
)

// Workspace is the quote being edited in one session, together with the
// line item draft and the last notice shown to the user.
//
// All reads and writes go through Update, View or Snapshot, which hold the
// workspace lock for the duration of the call.
type Workspace struct {
	mu     sync.Mutex
	quote  *domain.Quote
	draft  domain.LineItemDraft
	notice *Notice

	busy atomic.Bool
}

// NewWorkspace returns a workspace with an empty quote.
func NewWorkspace() *Workspace {
	return &Workspace{quote: domain.NewQuote()}
}

// Update runs fn with exclusive access to the quote and draft.
func (w *Workspace) Update(fn func(q *domain.Quote, draft *domain.LineItemDraft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.quote, &w.draft)
}

// Notice is a one-shot message for the next page render.
type Notice struct {
	Kind    string // "success", "error" or "info"
	Message string
}

// View is the state a page needs to render the workspace.
type View struct {
	Snapshot domain.Snapshot
	Draft    domain.LineItemDraft
	Notice   *Notice
}

// View copies the current state and consumes the pending notice.
func (w *Workspace) View(now time.Time) View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		Snapshot: w.quote.Snapshot(now),
		Draft:    w.draft,
		Notice:   w.notice,
	}
	w.notice = nil
	return v
}

// Snapshot copies the quote for rendering or delivery.
func (w *Workspace) Snapshot(now time.Time) domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quote.Snapshot(now)
}

// Notify sets the message shown on the next page render, replacing any
// earlier one.
func (w *Workspace) Notify(kind, msg string) {
	w.mu.Lock()
	w.notice = &Notice{Kind: kind, Message: msg}
	w.mu.Unlock()
}

// Begin marks a send or export as in flight. It returns false if one is
// already running; otherwise the caller must call the returned release.
func (w *Workspace) Begin() (release func(), ok bool) {
	if !w.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { w.busy.Store(false) }) }, true
}

// Busy reports whether a send or export is in flight.
func (w *Workspace) Busy() bool {
	return w.busy.Load()
}
