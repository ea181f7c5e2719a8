package chain

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentLog(t *testing.T, event string, sessionID int64, participant common.Address, amount *big.Int, block uint64) types.Log {
	t.Helper()

	contractABI, err := abi.JSON(strings.NewReader(string(ExpensesBalancerABI)))
	require.NoError(t, err)

	return types.Log{
		Topics: []common.Hash{
			contractABI.Events[event].ID,
			common.BigToHash(big.NewInt(sessionID)),
			common.BytesToHash(participant.Bytes()),
		},
		Data:        common.BigToHash(amount).Bytes(),
		BlockNumber: block,
		TxHash:      common.HexToHash("0x01"),
	}
}

func TestSessionEventsDecodesSettlementLogs(t *testing.T) {
	payer := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	gateway := newMockGateway()
	gateway.headNum = 12000
	gateway.logs = []types.Log{
		paymentLog(t, EventPaymentMade, 7, payer, big.NewInt(250), 11990),
		paymentLog(t, EventPaymentReceived, 7, payer, big.NewInt(250), 11995),
	}

	b := newTestBalancer(gateway)
	events, err := b.SessionEvents(context.Background(), 7, 5000)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventPaymentMade, events[0].Kind)
	assert.Equal(t, int64(7), events[0].SessionID)
	assert.Equal(t, payer.Hex(), events[0].Participant)
	assert.Equal(t, int64(250), events[0].Amount.Int64())
	assert.Equal(t, uint64(11990), events[0].BlockNumber)

	assert.Equal(t, EventPaymentReceived, events[1].Kind)
}

func TestSessionEventsSkipsMalformedLogs(t *testing.T) {
	payer := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	gateway := newMockGateway()
	gateway.headNum = 12000
	gateway.logs = []types.Log{
		{Topics: []common.Hash{common.HexToHash("0x02")}}, // too few topics
		paymentLog(t, EventBalanceSettled, 7, payer, big.NewInt(100), 11999),
	}

	b := newTestBalancer(gateway)
	events, err := b.SessionEvents(context.Background(), 7, 5000)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, EventBalanceSettled, events[0].Kind)
}

func TestSessionEventsBoundsTheQueryRange(t *testing.T) {
	gateway := newMockGateway()
	gateway.headNum = 100 // shallower than the lookback

	b := newTestBalancer(gateway)
	events, err := b.SessionEvents(context.Background(), 7, 5000)
	require.NoError(t, err)
	assert.Empty(t, events)
}
