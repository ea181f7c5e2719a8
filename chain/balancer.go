package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	balancer "github.com/expensesbalancer/balancer-go"
)

// Balancer is the typed view of the ExpensesBalancer contract and its
// settlement token. All failures come back classified as contract-call
// errors so the interaction boundary can surface them uniformly.
type Balancer struct {
	gateway  Gateway
	contract common.Address
	token    common.Address
}

// NewBalancer binds a gateway to the deployed contract and token addresses.
func NewBalancer(gateway Gateway, contractAddress, tokenAddress string) *Balancer {
	return &Balancer{
		gateway:  gateway,
		contract: common.HexToAddress(contractAddress),
		token:    common.HexToAddress(tokenAddress),
	}
}

// Gateway exposes the underlying gateway for event queries and receipts.
func (b *Balancer) Gateway() Gateway {
	return b.gateway
}

// CreateSession creates a session on-chain for the invited participants.
// The call is simulated first to learn the session id the contract will
// allocate, then submitted; both legs must succeed.
func (b *Balancer) CreateSession(ctx context.Context, invited []common.Address) (int64, string, error) {
	outputs, err := b.gateway.SimulateContract(ctx, b.contract, ExpensesBalancerABI, FunctionCreateSession, invited)
	if err != nil {
		return 0, "", balancer.WrapError(balancer.ErrCodeContractCall, "createSession simulation", err)
	}

	sessionID, err := uint256Output(outputs, 0)
	if err != nil {
		return 0, "", balancer.WrapError(balancer.ErrCodeContractCall, "createSession simulation result", err)
	}

	txHash, err := b.gateway.WriteContract(ctx, b.contract, ExpensesBalancerABI, FunctionCreateSession, invited)
	if err != nil {
		return 0, "", balancer.WrapError(balancer.ErrCodeContractCall, "createSession submission", err)
	}

	return sessionID.Int64(), txHash, nil
}

// JoinSession joins the wallet to a session.
func (b *Balancer) JoinSession(ctx context.Context, sessionID int64) (string, error) {
	txHash, err := b.gateway.WriteContract(ctx, b.contract, ExpensesBalancerABI, FunctionJoinSession, big.NewInt(sessionID))
	if err != nil {
		return "", balancer.WrapError(balancer.ErrCodeContractCall, "joinSession submission", err)
	}
	return txHash, nil
}

// AllParticipantsJoined reports on-chain quorum for a session.
func (b *Balancer) AllParticipantsJoined(ctx context.Context, sessionID int64) (bool, error) {
	outputs, err := b.gateway.ReadContract(ctx, b.contract, ExpensesBalancerABI, FunctionAllParticipantsJoined, big.NewInt(sessionID))
	if err != nil {
		return false, balancer.WrapError(balancer.ErrCodeContractCall, "allParticipantsJoined read", err)
	}
	return boolOutput(outputs, 0)
}

// Checkout submits per-participant totals and returns the signed balances
// the contract computes, one per participant in submission order.
func (b *Balancer) Checkout(ctx context.Context, sessionID int64, amounts []*big.Int) ([]*big.Int, string, error) {
	outputs, err := b.gateway.SimulateContract(ctx, b.contract, ExpensesBalancerABI, FunctionCheckout, big.NewInt(sessionID), amounts)
	if err != nil {
		return nil, "", balancer.WrapError(balancer.ErrCodeContractCall, "checkout simulation", err)
	}

	balances, err := intSliceOutput(outputs, 0)
	if err != nil {
		return nil, "", balancer.WrapError(balancer.ErrCodeContractCall, "checkout simulation result", err)
	}

	txHash, err := b.gateway.WriteContract(ctx, b.contract, ExpensesBalancerABI, FunctionCheckout, big.NewInt(sessionID), amounts)
	if err != nil {
		return nil, "", balancer.WrapError(balancer.ErrCodeContractCall, "checkout submission", err)
	}

	return balances, txHash, nil
}

// ParticipantHasPaid reports whether the participant settled their debt.
func (b *Balancer) ParticipantHasPaid(ctx context.Context, sessionID int64, participant string) (bool, error) {
	outputs, err := b.gateway.ReadContract(ctx, b.contract, ExpensesBalancerABI, FunctionGetParticipantHasPaid,
		big.NewInt(sessionID), common.HexToAddress(participant))
	if err != nil {
		return false, balancer.WrapError(balancer.ErrCodeContractCall, "getParticipantHasPaid read", err)
	}
	return boolOutput(outputs, 0)
}

// ParticipantBalance returns the participant's signed settlement balance.
// Negative means the participant owes; positive means they are owed.
func (b *Balancer) ParticipantBalance(ctx context.Context, sessionID int64, participant string) (*big.Int, error) {
	outputs, err := b.gateway.ReadContract(ctx, b.contract, ExpensesBalancerABI, FunctionGetParticipantBalance,
		big.NewInt(sessionID), common.HexToAddress(participant))
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeContractCall, "getParticipantBalance read", err)
	}
	return bigIntOutput(outputs, 0)
}

// SessionState reads the sessions(id) tuple and maps the state byte to the
// canonical representation.
func (b *Balancer) SessionState(ctx context.Context, sessionID int64) (balancer.SessionState, error) {
	outputs, err := b.gateway.ReadContract(ctx, b.contract, ExpensesBalancerABI, FunctionSessions, big.NewInt(sessionID))
	if err != nil {
		return "", balancer.WrapError(balancer.ErrCodeContractCall, "sessions read", err)
	}

	if len(outputs) <= sessionStateFieldIndex {
		return "", balancer.NewError(balancer.ErrCodeContractCall,
			fmt.Sprintf("sessions tuple has %d fields, state expected at %d", len(outputs), sessionStateFieldIndex), nil)
	}

	raw, ok := outputs[sessionStateFieldIndex].(uint8)
	if !ok {
		return "", balancer.NewError(balancer.ErrCodeContractCall,
			fmt.Sprintf("unexpected session state type %T", outputs[sessionStateFieldIndex]), nil)
	}

	state, err := balancer.StateFromChain(raw)
	if err != nil {
		return "", balancer.WrapError(balancer.ErrCodeContractCall, "map session state", err)
	}
	return state, nil
}

// MakePayment submits the wallet's settlement payment for the session.
func (b *Balancer) MakePayment(ctx context.Context, sessionID int64) (string, error) {
	txHash, err := b.gateway.WriteContract(ctx, b.contract, ExpensesBalancerABI, FunctionMakePayment, big.NewInt(sessionID))
	if err != nil {
		return "", balancer.WrapError(balancer.ErrCodeContractCall, "makePayment submission", err)
	}
	return txHash, nil
}

// Allowance returns how much of the token the contract may pull from the
// wallet.
func (b *Balancer) Allowance(ctx context.Context) (*big.Int, error) {
	outputs, err := b.gateway.ReadContract(ctx, b.token, ERC20ABI, FunctionAllowance, b.gateway.Address(), b.contract)
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeContractCall, "allowance read", err)
	}
	return bigIntOutput(outputs, 0)
}

// Approve grants the contract a token allowance and waits for the approval
// to confirm. It fails if the transaction reverts, so a caller that returns
// without error may rely on the allowance being in place.
func (b *Balancer) Approve(ctx context.Context, amount *big.Int) (string, error) {
	txHash, err := b.gateway.WriteContract(ctx, b.token, ERC20ABI, FunctionApprove, b.contract, amount)
	if err != nil {
		return "", balancer.WrapError(balancer.ErrCodeContractCall, "approve submission", err)
	}

	receipt, err := b.gateway.WaitForReceipt(ctx, txHash)
	if err != nil {
		return "", balancer.WrapError(balancer.ErrCodeContractCall, "approve confirmation", err)
	}
	if receipt.Status != TxStatusSuccess {
		return "", balancer.NewError(balancer.ErrCodeContractCall, "approve transaction reverted",
			map[string]interface{}{"tx": txHash})
	}

	return txHash, nil
}

// WaitForReceipt waits for a previously submitted transaction and fails on
// a reverted status.
func (b *Balancer) WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	receipt, err := b.gateway.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeContractCall, "transaction confirmation", err)
	}
	if receipt.Status != TxStatusSuccess {
		return nil, balancer.NewError(balancer.ErrCodeContractCall, "transaction reverted",
			map[string]interface{}{"tx": txHash})
	}
	return receipt, nil
}

// Output coercion helpers. Unpacked ABI outputs come back as interface
// slices; these keep the type assertions in one place.

func uint256Output(outputs []interface{}, index int) (*big.Int, error) {
	return bigIntOutput(outputs, index)
}

func bigIntOutput(outputs []interface{}, index int) (*big.Int, error) {
	if len(outputs) <= index {
		return nil, fmt.Errorf("missing output %d", index)
	}
	value, ok := outputs[index].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, want *big.Int", index, outputs[index])
	}
	return value, nil
}

func boolOutput(outputs []interface{}, index int) (bool, error) {
	if len(outputs) <= index {
		return false, fmt.Errorf("missing output %d", index)
	}
	value, ok := outputs[index].(bool)
	if !ok {
		return false, fmt.Errorf("output %d is %T, want bool", index, outputs[index])
	}
	return value, nil
}

func intSliceOutput(outputs []interface{}, index int) ([]*big.Int, error) {
	if len(outputs) <= index {
		return nil, fmt.Errorf("missing output %d", index)
	}
	value, ok := outputs[index].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, want []*big.Int", index, outputs[index])
	}
	return value, nil
}
