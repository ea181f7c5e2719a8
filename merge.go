package balancer

// MergeSession reconciles a backend session record with the state read from
// the contract. Precedence rule: the chain wins for lifecycle state, the
// database wins for descriptive metadata (timestamps, currency, aggregates,
// the local joined flag).
//
// An invalid chain state leaves the database state untouched, so a session
// whose on-chain read failed upstream still renders with its last known
// state.
func MergeSession(db Session, chainState SessionState) Session {
	merged := db
	if chainState.Valid() {
		merged.State = chainState
	}
	return merged
}

// MergeSessions applies MergeSession across a list, pairing sessions with
// chain states by session id. Sessions without a chain reading pass through
// unchanged.
func MergeSessions(db []Session, chainStates map[int64]SessionState) []Session {
	merged := make([]Session, len(db))
	for i, s := range db {
		if state, ok := chainStates[s.ID]; ok {
			merged[i] = MergeSession(s, state)
		} else {
			merged[i] = s
		}
	}
	return merged
}
