// Package ledger accumulates locally pending expenses for one session and
// batch-submits them to the backend, which owns the canonical expense list.
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	balancer "github.com/expensesbalancer/balancer-go"
)

// Backend is the slice of the REST client the ledger needs.
type Backend interface {
	SessionDetails(ctx context.Context, sessionID int64) (balancer.SessionDetails, error)
	CreateExpenses(ctx context.Context, sessionID int64, expenses []balancer.PendingExpense) ([]balancer.Expense, error)
}

// Ledger is the client-side expense ledger for one session: the fetched
// canonical view plus the in-memory pending batch.
type Ledger struct {
	mu sync.Mutex

	backend   Backend
	sessionID int64

	details balancer.SessionDetails
	loaded  bool
	pending []balancer.PendingExpense
}

// New creates a ledger bound to a session.
func New(backend Backend, sessionID int64) *Ledger {
	return &Ledger{backend: backend, sessionID: sessionID}
}

// Load fetches the canonical session details from the backend.
func (l *Ledger) Load(ctx context.Context) error {
	details, err := l.backend.SessionDetails(ctx, l.sessionID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.details = details
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// Details returns the last fetched canonical view.
func (l *Ledger) Details() (balancer.SessionDetails, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.details, l.loaded
}

// Add appends expenses to the pending batch. Entries with a non-positive
// amount are silently dropped; the returned count is how many were kept.
func (l *Ledger) Add(expenses ...balancer.PendingExpense) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := 0
	for _, e := range expenses {
		if e.Amount <= 0 {
			continue
		}
		l.pending = append(l.pending, e)
		kept++
	}
	return kept
}

// Pending returns a copy of the pending batch.
func (l *Ledger) Pending() []balancer.PendingExpense {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]balancer.PendingExpense, len(l.pending))
	copy(out, l.pending)
	return out
}

// Register submits the whole pending batch in one call. The pending list is
// cleared only on success; on failure it is retained so the user can
// re-trigger the submission. After a successful submit the canonical view
// is refreshed from the backend.
func (l *Ledger) Register(ctx context.Context) error {
	l.mu.Lock()
	batch := make([]balancer.PendingExpense, len(l.pending))
	copy(batch, l.pending)
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if _, err := l.backend.CreateExpenses(ctx, l.sessionID, batch); err != nil {
		return err
	}

	l.mu.Lock()
	l.pending = l.pending[len(batch):]
	l.mu.Unlock()

	return l.Load(ctx)
}

// Filter selects expenses from the canonical list. Zero values match
// everything.
type Filter struct {
	// UserID narrows to one participant's expenses.
	UserID int64

	// Date narrows to expenses on the same calendar day.
	Date time.Time

	// Text narrows to descriptions containing the text, case-insensitively.
	Text string
}

// Expenses applies the filter over the fetched canonical list. Filtering is
// purely client-side; the backend has no filtered queries.
func (l *Ledger) Expenses(filter Filter) []balancer.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]balancer.Expense, 0, len(l.details.Expenses))
	for _, e := range l.details.Expenses {
		if filter.UserID != 0 && e.UserID != filter.UserID {
			continue
		}
		if !filter.Date.IsZero() && !sameDay(e.Date, filter.Date) {
			continue
		}
		if filter.Text != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(filter.Text)) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
