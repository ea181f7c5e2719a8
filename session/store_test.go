package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	balancer "github.com/expensesbalancer/balancer-go"
)

func TestStoreRefreshAndLookup(t *testing.T) {
	backend := &mockBackend{sessions: []balancer.Session{
		{ID: 1, State: balancer.StateActive, Fiat: "EUR"},
		{ID: 2, State: balancer.StatePendingUsers, Fiat: "USD"},
	}}
	contract := &mockContract{states: map[int64]balancer.SessionState{
		1: balancer.StateActive,
		2: balancer.StatePendingUsers,
	}}
	store := NewStore(NewCoordinator(backend, contract, nil), walletFriend)

	require.NoError(t, store.Refresh(context.Background()))

	assert.Len(t, store.All(), 2)

	session, ok := store.Get(2)
	require.True(t, ok)
	assert.Equal(t, "USD", session.Fiat)

	_, ok = store.Get(99)
	assert.False(t, ok)
}

func TestStoreRefreshFailureKeepsCache(t *testing.T) {
	backend := &mockBackend{sessions: []balancer.Session{{ID: 1, State: balancer.StateActive}}}
	contract := &mockContract{states: map[int64]balancer.SessionState{1: balancer.StateActive}}
	store := NewStore(NewCoordinator(backend, contract, nil), walletFriend)

	require.NoError(t, store.Refresh(context.Background()))
	require.Len(t, store.All(), 1)

	backend.sessionsErr = errors.New("backend down")
	require.Error(t, store.Refresh(context.Background()))

	assert.Len(t, store.All(), 1)
}

func TestStoreJoinPatchesCachedSession(t *testing.T) {
	backend := &mockBackend{sessions: []balancer.Session{
		{ID: 7, State: balancer.StatePendingUsers, IsJoined: false},
	}}
	contract := &mockContract{
		states: map[int64]balancer.SessionState{7: balancer.StatePendingUsers},
		quorum: true,
	}
	store := NewStore(NewCoordinator(backend, contract, nil), walletFriend)
	require.NoError(t, store.Refresh(context.Background()))

	result, err := store.Join(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, result.QuorumReached)

	session, ok := store.Get(7)
	require.True(t, ok)
	assert.True(t, session.IsJoined)
	assert.Equal(t, balancer.StateActive, session.State)
}

func TestStoreAllReturnsCopy(t *testing.T) {
	backend := &mockBackend{sessions: []balancer.Session{{ID: 1, State: balancer.StateActive, Fiat: "EUR"}}}
	contract := &mockContract{states: map[int64]balancer.SessionState{1: balancer.StateActive}}
	store := NewStore(NewCoordinator(backend, contract, nil), walletFriend)
	require.NoError(t, store.Refresh(context.Background()))

	snapshot := store.All()
	snapshot[0].Fiat = "JPY"

	session, _ := store.Get(1)
	assert.Equal(t, "EUR", session.Fiat)
}
