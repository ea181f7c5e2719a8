package balancer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeSessionChainWinsState(t *testing.T) {
	db := Session{
		ID:         7,
		CreatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		State:      StatePendingUsers,
		Fiat:       "usdc",
		TotalSpent: 4200,
		QtyUsers:   3,
		IsJoined:   true,
	}

	merged := MergeSession(db, StateActive)

	assert.Equal(t, StateActive, merged.State)
	// Everything descriptive stays from the database record.
	assert.Equal(t, db.CreatedAt, merged.CreatedAt)
	assert.Equal(t, db.Fiat, merged.Fiat)
	assert.Equal(t, db.TotalSpent, merged.TotalSpent)
	assert.Equal(t, db.QtyUsers, merged.QtyUsers)
	assert.True(t, merged.IsJoined)
}

func TestMergeSessionInvalidChainStateKeepsDB(t *testing.T) {
	db := Session{ID: 7, State: StateActive}

	merged := MergeSession(db, SessionState(""))
	assert.Equal(t, StateActive, merged.State)
}

func TestMergeSessions(t *testing.T) {
	db := []Session{
		{ID: 1, State: StatePendingUsers},
		{ID: 2, State: StateActive},
		{ID: 3, State: StateActive},
	}
	chainStates := map[int64]SessionState{
		1: StateActive,
		3: StateAwaitingPayment,
	}

	merged := MergeSessions(db, chainStates)

	assert.Equal(t, StateActive, merged[0].State)
	// No chain reading for session 2: backend state passes through.
	assert.Equal(t, StateActive, merged[1].State)
	assert.Equal(t, StateAwaitingPayment, merged[2].State)
}
