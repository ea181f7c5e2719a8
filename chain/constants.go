package chain

const (
	// ExpensesBalancer function names
	FunctionCreateSession          = "createSession"
	FunctionJoinSession            = "joinSession"
	FunctionAllParticipantsJoined  = "allParticipantsJoined"
	FunctionCheckout               = "checkout"
	FunctionGetParticipantHasPaid  = "getParticipantHasPaid"
	FunctionGetParticipantBalance  = "getParticipantBalance"
	FunctionMakePayment            = "makePayment"
	FunctionSessions               = "sessions"

	// ERC-20 function names
	FunctionAllowance = "allowance"
	FunctionApprove   = "approve"

	// Transaction receipt status
	TxStatusSuccess = 1
	TxStatusFailed  = 0

	// sessionStateFieldIndex is the position of the state byte in the
	// sessions(uint256) return tuple.
	sessionStateFieldIndex = 1
)

var (
	// ExpensesBalancerABI covers every contract function this client calls.
	ExpensesBalancerABI = []byte(`[
		{
			"inputs": [{"name": "invitedParticipants", "type": "address[]"}],
			"name": "createSession",
			"outputs": [{"name": "sessionId", "type": "uint256"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "sessionId", "type": "uint256"}],
			"name": "joinSession",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "sessionId", "type": "uint256"}],
			"name": "allParticipantsJoined",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "sessionId", "type": "uint256"},
				{"name": "amounts", "type": "uint256[]"}
			],
			"name": "checkout",
			"outputs": [{"name": "balances", "type": "int256[]"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "sessionId", "type": "uint256"},
				{"name": "participant", "type": "address"}
			],
			"name": "getParticipantHasPaid",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "sessionId", "type": "uint256"},
				{"name": "participant", "type": "address"}
			],
			"name": "getParticipantBalance",
			"outputs": [{"name": "", "type": "int256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [{"name": "sessionId", "type": "uint256"}],
			"name": "makePayment",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "", "type": "uint256"}],
			"name": "sessions",
			"outputs": [
				{"name": "organizer", "type": "address"},
				{"name": "state", "type": "uint8"},
				{"name": "totalSpent", "type": "uint256"},
				{"name": "qtyParticipants", "type": "uint256"}
			],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "sessionId", "type": "uint256"},
				{"indexed": true, "name": "payer", "type": "address"},
				{"indexed": false, "name": "amount", "type": "uint256"}
			],
			"name": "PaymentMade",
			"type": "event"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "sessionId", "type": "uint256"},
				{"indexed": true, "name": "recipient", "type": "address"},
				{"indexed": false, "name": "amount", "type": "uint256"}
			],
			"name": "PaymentReceived",
			"type": "event"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "sessionId", "type": "uint256"},
				{"indexed": true, "name": "participant", "type": "address"},
				{"indexed": false, "name": "balance", "type": "int256"}
			],
			"name": "BalanceSettled",
			"type": "event"
		}
	]`)

	// ERC20ABI covers the allowance/approve pair used to fund payments.
	ERC20ABI = []byte(`[
		{
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"name": "allowance",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "approve",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)
)
