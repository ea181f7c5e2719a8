// Package checkout reconciles final balances: it submits aggregate totals
// to the contract, tracks per-participant payment status, and drives the
// approve-then-pay settlement sequence.
package checkout

import (
	"context"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	balancer "github.com/expensesbalancer/balancer-go"
	"github.com/expensesbalancer/balancer-go/chain"
)

// Contract is the slice of the chain layer the reconciler needs.
type Contract interface {
	Checkout(ctx context.Context, sessionID int64, amounts []*big.Int) ([]*big.Int, string, error)
	ParticipantHasPaid(ctx context.Context, sessionID int64, participant string) (bool, error)
	ParticipantBalance(ctx context.Context, sessionID int64, participant string) (*big.Int, error)
	MakePayment(ctx context.Context, sessionID int64) (string, error)
	Allowance(ctx context.Context) (*big.Int, error)
	Approve(ctx context.Context, amount *big.Int) (string, error)
	WaitForReceipt(ctx context.Context, txHash string) (*chain.Receipt, error)
}

// Reconciler coordinates checkout and settlement against the contract.
type Reconciler struct {
	contract Contract
	log      logrus.FieldLogger
}

// NewReconciler creates a reconciler. logger may be nil for a quiet one.
func NewReconciler(contract Contract, logger logrus.FieldLogger) *Reconciler {
	if logger == nil {
		quiet := logrus.New()
		quiet.SetLevel(logrus.PanicLevel)
		logger = quiet
	}
	return &Reconciler{contract: contract, log: logger}
}

// ParticipantBalance is one participant's settled balance. Negative means
// the participant owes money; positive means they are owed.
type ParticipantBalance struct {
	WalletAddress string
	Balance       *big.Int
}

// CheckoutResult reports a successful checkout.
type CheckoutResult struct {
	Balances []ParticipantBalance
	TxHash   string
}

// Checkout submits per-participant total spend to the contract and returns
// one signed balance per participant, in totals order. The balances must
// satisfy the zero-sum settlement invariant; a violation beyond integer
// division remainder is reported as a contract failure.
func (r *Reconciler) Checkout(ctx context.Context, sessionID int64, totals []balancer.ParticipantTotal) (CheckoutResult, error) {
	if len(totals) == 0 {
		return CheckoutResult{}, balancer.NewError(balancer.ErrCodeValidation, "checkout requires at least one participant", nil)
	}

	amounts := make([]*big.Int, len(totals))
	for i, t := range totals {
		if t.Total < 0 {
			return CheckoutResult{}, balancer.NewError(balancer.ErrCodeValidation,
				fmt.Sprintf("negative total for %s", t.WalletAddress), nil)
		}
		amounts[i] = big.NewInt(t.Total)
	}

	balances, txHash, err := r.contract.Checkout(ctx, sessionID, amounts)
	if err != nil {
		return CheckoutResult{}, err
	}

	if len(balances) != len(totals) {
		return CheckoutResult{}, balancer.NewError(balancer.ErrCodeContractCall,
			fmt.Sprintf("checkout returned %d balances for %d participants", len(balances), len(totals)), nil)
	}

	if err := verifyZeroSum(balances); err != nil {
		return CheckoutResult{}, balancer.WrapError(balancer.ErrCodeContractCall, "checkout balances", err)
	}

	result := CheckoutResult{
		Balances: make([]ParticipantBalance, len(balances)),
		TxHash:   txHash,
	}
	for i, b := range balances {
		result.Balances[i] = ParticipantBalance{
			WalletAddress: totals[i].WalletAddress,
			Balance:       b,
		}
	}

	r.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"tx":         txHash,
	}).Info("checkout settled")

	return result, nil
}

// verifyZeroSum checks that balances cancel out, within one unit per
// participant to absorb the contract's integer division remainder.
func verifyZeroSum(balances []*big.Int) error {
	sum := new(big.Int)
	for _, b := range balances {
		sum.Add(sum, b)
	}

	tolerance := big.NewInt(int64(len(balances)))
	if new(big.Int).Abs(sum).Cmp(tolerance) > 0 {
		return fmt.Errorf("balances sum to %s, want 0", sum)
	}
	return nil
}

// ParticipantStatus is one participant's payment state read from the chain.
type ParticipantStatus struct {
	WalletAddress string
	HasPaid       bool
	Balance       *big.Int
}

// ProgressFunc receives fractional progress in percent. Values are emitted
// once per participant, strictly increasing from 100/N to 100.
type ProgressFunc func(percent float64)

// PollParticipantStatus reads payment status and balance for each
// participant from the contract, sequentially and in list order. Both reads
// for one participant complete before the next participant starts, and
// onProgress fires after each. A failed read aborts the poll; statuses
// gathered so far are discarded.
func (r *Reconciler) PollParticipantStatus(ctx context.Context, sessionID int64, participants []balancer.Participant, onProgress ProgressFunc) ([]ParticipantStatus, error) {
	statuses := make([]ParticipantStatus, 0, len(participants))
	total := len(participants)

	for i, p := range participants {
		hasPaid, err := r.contract.ParticipantHasPaid(ctx, sessionID, p.WalletAddress)
		if err != nil {
			return nil, err
		}

		balance, err := r.contract.ParticipantBalance(ctx, sessionID, p.WalletAddress)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, ParticipantStatus{
			WalletAddress: p.WalletAddress,
			HasPaid:       hasPaid,
			Balance:       balance,
		})

		if onProgress != nil {
			onProgress(float64(i+1) / float64(total) * 100)
		}
	}

	return statuses, nil
}

// PaymentResult reports a completed settlement payment.
type PaymentResult struct {
	// ApproveTxHash is empty when the existing allowance already covered
	// the payment.
	ApproveTxHash string
	PaymentTxHash string
}

// Pay settles the wallet's debt for the session. If the current token
// allowance is below amount, an approve transaction runs first and must
// confirm before the payment is attempted.
func (r *Reconciler) Pay(ctx context.Context, sessionID int64, amount *big.Int) (PaymentResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return PaymentResult{}, balancer.NewError(balancer.ErrCodeValidation, "payment amount must be positive", nil)
	}

	var result PaymentResult

	allowance, err := r.contract.Allowance(ctx)
	if err != nil {
		return PaymentResult{}, err
	}

	if allowance.Cmp(amount) < 0 {
		// Approve blocks until its receipt confirms; the payment is never
		// submitted on an unconfirmed approval.
		approveTx, err := r.contract.Approve(ctx, amount)
		if err != nil {
			return PaymentResult{}, err
		}
		result.ApproveTxHash = approveTx

		r.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"tx":         approveTx,
		}).Info("allowance approved")
	}

	paymentTx, err := r.contract.MakePayment(ctx, sessionID)
	if err != nil {
		return PaymentResult{}, err
	}

	if _, err := r.contract.WaitForReceipt(ctx, paymentTx); err != nil {
		return PaymentResult{}, err
	}
	result.PaymentTxHash = paymentTx

	r.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"tx":         paymentTx,
	}).Info("payment confirmed")

	return result, nil
}
