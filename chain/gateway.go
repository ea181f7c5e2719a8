// Package chain is the contract-call layer over the ExpensesBalancer
// contract and its settlement token. A Gateway abstracts the raw
// read/simulate/write/receipt primitives; Balancer layers the typed contract
// operations on top.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// receiptPollInterval is how often a pending transaction is re-checked.
const receiptPollInterval = 2 * time.Second

// Receipt is the mined-transaction result surfaced to callers.
type Receipt struct {
	Status      uint64
	BlockNumber uint64
	TxHash      string
}

// Gateway abstracts chain access so contract logic can be exercised against
// a mock. The ethclient-backed implementation is EthGateway.
type Gateway interface {
	// Address returns the wallet address used for writes and simulations.
	Address() common.Address

	// ReadContract executes a view call and returns the unpacked outputs.
	ReadContract(ctx context.Context, contract common.Address, abiJSON []byte, function string, args ...interface{}) ([]interface{}, error)

	// SimulateContract executes a call with the wallet as sender, returning
	// the outputs the function would produce without submitting anything.
	SimulateContract(ctx context.Context, contract common.Address, abiJSON []byte, function string, args ...interface{}) ([]interface{}, error)

	// WriteContract signs and submits a contract transaction, returning the
	// transaction hash without waiting for it to mine.
	WriteContract(ctx context.Context, contract common.Address, abiJSON []byte, function string, args ...interface{}) (string, error)

	// WaitForReceipt blocks until the transaction is mined or ctx expires.
	WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error)

	// FilterLogs runs an event-log query.
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// BlockNumber returns the latest block number.
	BlockNumber(ctx context.Context) (uint64, error)
}

// EthGateway implements Gateway over a JSON-RPC node. The underlying
// ethclient pair (one connection serves both reads and writes) is dialed
// lazily on first use and reused for the life of the gateway.
type EthGateway struct {
	rpcURL         string
	chainID        *big.Int
	receiptTimeout time.Duration

	privateKey *ecdsa.PrivateKey
	address    common.Address

	dialOnce sync.Once
	eth      *ethclient.Client
	dialErr  error
}

// GatewayConfig configures an EthGateway.
type GatewayConfig struct {
	// RPCURL is the JSON-RPC endpoint.
	RPCURL string

	// ChainID of the target network.
	ChainID int64

	// PrivateKeyHex is the hex-encoded wallet key, with or without the "0x"
	// prefix. Optional: without it the gateway is read-only and writes fail.
	PrivateKeyHex string

	// ReceiptTimeout caps how long WaitForReceipt blocks. Zero means wait
	// until the caller's context expires.
	ReceiptTimeout time.Duration
}

// NewEthGateway creates a gateway. No connection is made until the first
// call that needs one.
func NewEthGateway(config GatewayConfig) (*EthGateway, error) {
	if config.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if config.ChainID == 0 {
		return nil, fmt.Errorf("chain id is required")
	}

	g := &EthGateway{
		rpcURL:         config.RPCURL,
		chainID:        big.NewInt(config.ChainID),
		receiptTimeout: config.ReceiptTimeout,
	}

	if config.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(config.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		g.privateKey = key
		g.address = crypto.PubkeyToAddress(key.PublicKey)
	}

	return g, nil
}

// Address returns the wallet address, or the zero address for a read-only
// gateway.
func (g *EthGateway) Address() common.Address {
	return g.address
}

// client dials the node exactly once and reuses the connection.
func (g *EthGateway) client(ctx context.Context) (*ethclient.Client, error) {
	g.dialOnce.Do(func() {
		g.eth, g.dialErr = ethclient.DialContext(ctx, g.rpcURL)
	})
	if g.dialErr != nil {
		return nil, fmt.Errorf("dial %s: %w", g.rpcURL, g.dialErr)
	}
	return g.eth, nil
}

// ReadContract executes a view call and unpacks the outputs.
func (g *EthGateway) ReadContract(ctx context.Context, contract common.Address, abiJSON []byte, function string, args ...interface{}) ([]interface{}, error) {
	return g.call(ctx, contract, abiJSON, function, common.Address{}, args...)
}

// SimulateContract executes the call as the wallet, so sender-dependent
// results (such as the session id createSession would allocate) come back
// without submitting a transaction.
func (g *EthGateway) SimulateContract(ctx context.Context, contract common.Address, abiJSON []byte, function string, args ...interface{}) ([]interface{}, error) {
	return g.call(ctx, contract, abiJSON, function, g.address, args...)
}

func (g *EthGateway) call(ctx context.Context, contract common.Address, abiJSON []byte, function string, from common.Address, args ...interface{}) ([]interface{}, error) {
	eth, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	contractABI, err := abi.JSON(strings.NewReader(string(abiJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(function, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", function, err)
	}

	msg := ethereum.CallMsg{
		From: from,
		To:   &contract,
		Data: data,
	}

	result, err := eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", function, err)
	}

	outputs, err := contractABI.Unpack(function, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", function, err)
	}
	return outputs, nil
}

// WriteContract signs and submits an EIP-1559 transaction for the packed
// function call. It returns as soon as the node accepts the submission;
// callers that need confirmation follow up with WaitForReceipt.
func (g *EthGateway) WriteContract(ctx context.Context, contract common.Address, abiJSON []byte, function string, args ...interface{}) (string, error) {
	if g.privateKey == nil {
		return "", fmt.Errorf("gateway is read-only: no private key configured")
	}

	eth, err := g.client(ctx)
	if err != nil {
		return "", err
	}

	contractABI, err := abi.JSON(strings.NewReader(string(abiJSON)))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := contractABI.Pack(function, args...)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s call: %w", function, err)
	}

	nonce, err := eth.PendingNonceAt(ctx, g.address)
	if err != nil {
		return "", fmt.Errorf("failed to get pending nonce: %w", err)
	}

	gasTipCap, err := eth.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas tip cap: %w", err)
	}

	// Gas price doubles as a conservative fee cap.
	gasFeeCap, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := eth.EstimateGas(ctx, ethereum.CallMsg{
		From: g.address,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("%s gas estimation failed: %w", function, err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   g.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &contract,
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := eth.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send %s transaction: %w", function, err)
	}

	return signedTx.Hash().Hex(), nil
}

// WaitForReceipt polls until the transaction mines, the configured receipt
// timeout elapses, or ctx expires.
func (g *EthGateway) WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	if g.receiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.receiptTimeout)
		defer cancel()
	}

	eth, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return &Receipt{
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber.Uint64(),
				TxHash:      txHash,
			}, nil
		}
		if err != ethereum.NotFound {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// FilterLogs runs an event-log query against the node.
func (g *EthGateway) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	eth, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	return eth.FilterLogs(ctx, q)
}

// BlockNumber returns the latest block number.
func (g *EthGateway) BlockNumber(ctx context.Context) (uint64, error) {
	eth, err := g.client(ctx)
	if err != nil {
		return 0, err
	}
	return eth.BlockNumber(ctx)
}
