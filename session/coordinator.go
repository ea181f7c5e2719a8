// Package session drives the session lifecycle: creation, joining, quorum
// detection and activation, coordinating the backend database with the
// on-chain session record.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	balancer "github.com/expensesbalancer/balancer-go"
	"github.com/expensesbalancer/balancer-go/api"
)

// Backend is the slice of the REST client the coordinator needs.
type Backend interface {
	UserSessions(ctx context.Context, wallet string) ([]balancer.Session, error)
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (balancer.Session, error)
	JoinSession(ctx context.Context, sessionID int64, wallet string) error
	ActivateSession(ctx context.Context, sessionID int64, wallet string) error
}

// Contract is the slice of the chain layer the coordinator needs.
type Contract interface {
	CreateSession(ctx context.Context, invited []common.Address) (int64, string, error)
	JoinSession(ctx context.Context, sessionID int64) (string, error)
	AllParticipantsJoined(ctx context.Context, sessionID int64) (bool, error)
	SessionState(ctx context.Context, sessionID int64) (balancer.SessionState, error)
}

// Coordinator owns session state transitions. Both collaborators are
// injected; it holds no global state.
type Coordinator struct {
	backend  Backend
	contract Contract
	log      logrus.FieldLogger
}

// NewCoordinator creates a coordinator. logger may be nil for a quiet one.
func NewCoordinator(backend Backend, contract Contract, logger logrus.FieldLogger) *Coordinator {
	if logger == nil {
		quiet := logrus.New()
		quiet.SetLevel(logrus.PanicLevel)
		logger = quiet
	}
	return &Coordinator{backend: backend, contract: contract, log: logger}
}

// CreateResult reports a successful session creation.
type CreateResult struct {
	Session balancer.Session
	TxHash  string
}

// Create creates a session on-chain, then mirrors it in the backend. The
// organizer wallet is the transaction sender and is not part of invited.
//
// Duplicate or malformed wallet addresses are rejected before any network
// or contract call. A failure in either leg surfaces as a single error with
// no rollback of the leg that succeeded.
func (c *Coordinator) Create(ctx context.Context, organizer string, invited []string, fiat string) (CreateResult, error) {
	if err := validateWallets(organizer, invited); err != nil {
		return CreateResult{}, err
	}

	invitedAddrs := make([]common.Address, len(invited))
	for i, w := range invited {
		invitedAddrs[i] = common.HexToAddress(w)
	}

	qtyUsers := len(invited) + 1

	c.log.WithFields(logrus.Fields{
		"organizer": organizer,
		"qty_users": qtyUsers,
	}).Info("creating session on-chain")

	sessionID, txHash, err := c.contract.CreateSession(ctx, invitedAddrs)
	if err != nil {
		return CreateResult{}, err
	}

	state := balancer.StateActive
	if qtyUsers > 1 {
		state = balancer.StatePendingUsers
	}

	participants := make([]api.CreateSessionParticipant, 0, qtyUsers)
	participants = append(participants, api.CreateSessionParticipant{WalletAddress: organizer, Joined: true})
	for _, w := range invited {
		participants = append(participants, api.CreateSessionParticipant{WalletAddress: w, Joined: false})
	}

	session, err := c.backend.CreateSession(ctx, api.CreateSessionRequest{
		ID:           sessionID,
		State:        state,
		Fiat:         fiat,
		QtyUsers:     qtyUsers,
		Participants: participants,
	})
	if err != nil {
		// On-chain leg already succeeded; the caller sees one failure and
		// the records stay inconsistent until recreated.
		return CreateResult{}, err
	}

	c.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"tx":         txHash,
	}).Info("session created")

	return CreateResult{Session: session, TxHash: txHash}, nil
}

// JoinResult reports a successful join.
type JoinResult struct {
	TxHash string

	// QuorumReached is true when this join was the last one and the session
	// was activated.
	QuorumReached bool
}

// Join joins the wallet to a session on-chain, acknowledges the join in the
// backend, then re-queries quorum and activates the backend record when
// every invited participant has joined.
func (c *Coordinator) Join(ctx context.Context, sessionID int64, wallet string) (JoinResult, error) {
	if !common.IsHexAddress(wallet) {
		return JoinResult{}, balancer.NewError(balancer.ErrCodeValidation,
			fmt.Sprintf("invalid wallet address %q", wallet), nil)
	}

	txHash, err := c.contract.JoinSession(ctx, sessionID)
	if err != nil {
		return JoinResult{}, err
	}

	c.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"tx":         txHash,
	}).Info("joined session on-chain")

	if err := c.backend.JoinSession(ctx, sessionID, wallet); err != nil {
		return JoinResult{}, err
	}

	joined, err := c.contract.AllParticipantsJoined(ctx, sessionID)
	if err != nil {
		return JoinResult{}, err
	}
	if !joined {
		return JoinResult{TxHash: txHash}, nil
	}

	if err := c.backend.ActivateSession(ctx, sessionID, wallet); err != nil {
		return JoinResult{}, err
	}

	c.log.WithField("session_id", sessionID).Info("quorum reached, session activated")

	return JoinResult{TxHash: txHash, QuorumReached: true}, nil
}

// Sessions fetches the wallet's sessions from the backend and overlays the
// on-chain lifecycle state of each. A failed chain read leaves that
// session's backend state in place.
func (c *Coordinator) Sessions(ctx context.Context, wallet string) ([]balancer.Session, error) {
	sessions, err := c.backend.UserSessions(ctx, wallet)
	if err != nil {
		return nil, err
	}

	chainStates := make(map[int64]balancer.SessionState, len(sessions))
	for _, s := range sessions {
		state, err := c.contract.SessionState(ctx, s.ID)
		if err != nil {
			c.log.WithField("session_id", s.ID).WithError(err).Warn("chain state read failed, keeping backend state")
			continue
		}
		chainStates[s.ID] = state
	}

	return balancer.MergeSessions(sessions, chainStates), nil
}

// validateWallets rejects malformed and duplicate addresses. Comparison is
// case-insensitive since EIP-55 checksum casing varies by source.
func validateWallets(organizer string, invited []string) error {
	all := append([]string{organizer}, invited...)
	seen := make(map[string]struct{}, len(all))

	for _, w := range all {
		if !common.IsHexAddress(w) {
			return balancer.NewError(balancer.ErrCodeValidation,
				fmt.Sprintf("invalid wallet address %q", w), nil)
		}
		key := strings.ToLower(w)
		if _, dup := seen[key]; dup {
			return balancer.NewError(balancer.ErrCodeValidation,
				fmt.Sprintf("duplicate wallet address %s", w),
				map[string]interface{}{"wallet": w})
		}
		seen[key] = struct{}{}
	}
	return nil
}
