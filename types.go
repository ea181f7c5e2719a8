package balancer

import (
	"fmt"
	"time"
)

// SessionState is the canonical lifecycle state of a session. The backend
// stores states as strings; the ExpensesBalancer contract encodes them as a
// uint8 in the sessions() tuple. The string form is canonical everywhere in
// this module, with StateFromChain/ChainValue as the explicit bridge.
type SessionState string

const (
	// StatePending is the initial off-chain state of a single-user session
	// before the backend record is confirmed. It has no on-chain encoding.
	StatePending SessionState = "Pending"

	// StatePendingUsers means the session exists on-chain but not every
	// invited participant has joined yet.
	StatePendingUsers SessionState = "PendingUsers"

	// StateActive means quorum was reached and expenses can be logged.
	StateActive SessionState = "Active"

	// StateAwaitingPayment means checkout ran and balances are settled
	// on-chain; participants with negative balances still owe payment.
	StateAwaitingPayment SessionState = "AwaitingPayment"

	// StateCompleted means every owing participant has paid.
	StateCompleted SessionState = "Completed"
)

// Contract-side numeric encoding of session states.
const (
	chainStatePendingUsers    = 0
	chainStateActive          = 1
	chainStateAwaitingPayment = 2
	chainStateCompleted       = 3
)

// StateFromChain maps the contract's numeric state encoding to the
// canonical string form.
func StateFromChain(state uint8) (SessionState, error) {
	switch state {
	case chainStatePendingUsers:
		return StatePendingUsers, nil
	case chainStateActive:
		return StateActive, nil
	case chainStateAwaitingPayment:
		return StateAwaitingPayment, nil
	case chainStateCompleted:
		return StateCompleted, nil
	default:
		return "", fmt.Errorf("unknown on-chain session state: %d", state)
	}
}

// ChainValue maps the canonical string state to the contract's numeric
// encoding. StatePending has no on-chain representation and returns an error.
func (s SessionState) ChainValue() (uint8, error) {
	switch s {
	case StatePendingUsers:
		return chainStatePendingUsers, nil
	case StateActive:
		return chainStateActive, nil
	case StateAwaitingPayment:
		return chainStateAwaitingPayment, nil
	case StateCompleted:
		return chainStateCompleted, nil
	default:
		return 0, fmt.Errorf("session state %q has no on-chain encoding", s)
	}
}

// Valid reports whether s is one of the known lifecycle states.
func (s SessionState) Valid() bool {
	switch s {
	case StatePending, StatePendingUsers, StateActive, StateAwaitingPayment, StateCompleted:
		return true
	}
	return false
}

// Settled reports whether the session has passed checkout, meaning balance
// and payment data is available on-chain.
func (s SessionState) Settled() bool {
	return s == StateAwaitingPayment || s == StateCompleted
}

// Session is a group expense pool with a fixed participant list. The record
// is mirrored between the backend database and the contract; see
// MergeSession for the precedence rule when the two disagree.
type Session struct {
	ID         int64        `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	State      SessionState `json:"state"`
	Fiat       string       `json:"fiat"`
	TotalSpent int64        `json:"total_spent"`
	QtyUsers   int          `json:"qty_users"`
	IsJoined   bool         `json:"is_joined"`
}

// Participant is one member of a session, identified by wallet address.
type Participant struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
	Joined        bool   `json:"joined"`
	TotalSpent    int64  `json:"total_spent"`
}

// Expense is one backend-persisted expense record. Amounts are integers in
// the smallest unit of the session's fiat tag.
type Expense struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"session_id"`
	UserID      int64     `json:"user_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// PendingExpense is an expense held in memory before a batch submit. It is
// the wire shape of one entry in POST /create_expense.
type PendingExpense struct {
	UserID      int64  `json:"user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// SessionDetails is the canonical session view returned by the backend.
type SessionDetails struct {
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
	Expenses     []Expense     `json:"expenses"`
}

// User is the backend profile record for an authenticated wallet.
type User struct {
	ID                int64  `json:"id"`
	PrivyID           string `json:"privy_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	WalletAddress     string `json:"walletAddress"`
	IsProfileComplete bool   `json:"is_profile_complete"`
}

// ParticipantTotal pairs a participant's wallet with their aggregate spend,
// in session participant order. Checkout submits these to the contract.
type ParticipantTotal struct {
	WalletAddress string
	Total         int64
}

// TotalsFromDetails derives per-participant totals from a session details
// view, preserving participant list order.
func TotalsFromDetails(details SessionDetails) []ParticipantTotal {
	totals := make([]ParticipantTotal, len(details.Participants))
	for i, p := range details.Participants {
		totals[i] = ParticipantTotal{
			WalletAddress: p.WalletAddress,
			Total:         p.TotalSpent,
		}
	}
	return totals
}
