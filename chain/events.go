package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	balancer "github.com/expensesbalancer/balancer-go"
)

// Event kinds emitted by the contract during settlement.
const (
	EventPaymentMade     = "PaymentMade"
	EventPaymentReceived = "PaymentReceived"
	EventBalanceSettled  = "BalanceSettled"
)

// SessionEvent is one settlement-phase log entry for a session.
type SessionEvent struct {
	Kind        string
	SessionID   int64
	Participant string
	// Amount is the payment amount for PaymentMade/PaymentReceived and the
	// signed balance for BalanceSettled.
	Amount      *big.Int
	BlockNumber uint64
	TxHash      string
}

// SessionEvents queries the contract's settlement events for one session
// over the most recent lookbackBlocks blocks. The range is bounded so the
// query stays cheap on public RPC endpoints.
func (b *Balancer) SessionEvents(ctx context.Context, sessionID int64, lookbackBlocks uint64) ([]SessionEvent, error) {
	contractABI, err := abi.JSON(strings.NewReader(string(ExpensesBalancerABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	head, err := b.gateway.BlockNumber(ctx)
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeContractCall, "latest block read", err)
	}

	fromBlock := uint64(0)
	if head > lookbackBlocks {
		fromBlock = head - lookbackBlocks
	}

	sessionTopic := common.BigToHash(big.NewInt(sessionID))
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{b.contract},
		Topics: [][]common.Hash{
			{
				contractABI.Events[EventPaymentMade].ID,
				contractABI.Events[EventPaymentReceived].ID,
				contractABI.Events[EventBalanceSettled].ID,
			},
			{sessionTopic},
		},
	}

	logs, err := b.gateway.FilterLogs(ctx, query)
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeContractCall, "event log query", err)
	}

	events := make([]SessionEvent, 0, len(logs))
	for _, entry := range logs {
		event, err := decodeSessionEvent(contractABI, entry)
		if err != nil {
			// Unknown log shapes are skipped rather than failing the view.
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeSessionEvent(contractABI abi.ABI, entry types.Log) (SessionEvent, error) {
	if len(entry.Topics) < 3 {
		return SessionEvent{}, fmt.Errorf("log has %d topics, want 3", len(entry.Topics))
	}

	eventDef, err := contractABI.EventByID(entry.Topics[0])
	if err != nil {
		return SessionEvent{}, err
	}

	unpacked, err := contractABI.Unpack(eventDef.Name, entry.Data)
	if err != nil {
		return SessionEvent{}, fmt.Errorf("unpack %s data: %w", eventDef.Name, err)
	}
	amount, err := bigIntOutput(unpacked, 0)
	if err != nil {
		return SessionEvent{}, fmt.Errorf("decode %s amount: %w", eventDef.Name, err)
	}

	return SessionEvent{
		Kind:        eventDef.Name,
		SessionID:   entry.Topics[1].Big().Int64(),
		Participant: common.BytesToAddress(entry.Topics[2].Bytes()).Hex(),
		Amount:      amount,
		BlockNumber: entry.BlockNumber,
		TxHash:      entry.TxHash.Hex(),
	}, nil
}
