// Package client assembles the full split-bill client: the backend API
// client, the chain gateway pair, the session coordinator, the expense
// ledger and the checkout reconciler, all explicitly constructed and
// dependency-injected from one Config.
package client

import (
	"context"

	"github.com/sirupsen/logrus"

	balancer "github.com/expensesbalancer/balancer-go"
	"github.com/expensesbalancer/balancer-go/api"
	"github.com/expensesbalancer/balancer-go/chain"
	"github.com/expensesbalancer/balancer-go/checkout"
	"github.com/expensesbalancer/balancer-go/config"
	"github.com/expensesbalancer/balancer-go/ledger"
	"github.com/expensesbalancer/balancer-go/session"
)

// Client is the top-level handle. The chain connection behind Contract is
// dialed lazily on first use and reused for the client's lifetime; there is
// no process-global state.
type Client struct {
	API      *api.Client
	Contract *chain.Balancer
	Sessions *session.Coordinator
	Checkout *checkout.Reconciler

	cfg config.Config
	log *logrus.Logger
}

// Option adjusts the client during construction.
type Option func(*Client)

// WithLogger replaces the config-derived logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// New builds a client from configuration.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logrus.New()
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			c.log.SetLevel(level)
		}
	}

	gateway, err := chain.NewEthGateway(chain.GatewayConfig{
		RPCURL:         cfg.RPCURL,
		ChainID:        cfg.ChainID,
		PrivateKeyHex:  cfg.PrivateKey,
		ReceiptTimeout: cfg.ReceiptTimeout,
	})
	if err != nil {
		return nil, err
	}

	c.API = api.NewClient(&api.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.HTTPTimeout,
	})
	c.Contract = chain.NewBalancer(gateway, cfg.ContractAddress, cfg.TokenAddress)
	c.Sessions = session.NewCoordinator(c.API, c.Contract, c.log)
	c.Checkout = checkout.NewReconciler(c.Contract, c.log)

	return c, nil
}

// Store returns a session cache for the wallet.
func (c *Client) Store(wallet string) *session.Store {
	return session.NewStore(c.Sessions, wallet)
}

// Ledger returns an expense ledger for the session.
func (c *Client) Ledger(sessionID int64) *ledger.Ledger {
	return ledger.New(c.API, sessionID)
}

// SessionEvents queries the session's settlement events over the configured
// recent block range.
func (c *Client) SessionEvents(ctx context.Context, sessionID int64) ([]chain.SessionEvent, error) {
	return c.Contract.SessionEvents(ctx, sessionID, c.cfg.EventLookbackBlocks)
}

// ResolveUser resolves the authenticated wallet to a backend profile. For a
// wallet the backend has never seen, a scaffold profile is returned with
// registered=false so the caller can run the profile form.
func (c *Client) ResolveUser(ctx context.Context, privyID, wallet string) (balancer.User, bool, error) {
	check, err := c.API.CheckUser(ctx, privyID, wallet)
	if err != nil {
		return balancer.User{}, false, err
	}

	if !check.IsRegistered {
		scaffold := balancer.User{
			PrivyID:       privyID,
			WalletAddress: wallet,
		}
		return scaffold, false, nil
	}

	user, err := c.API.GetUser(ctx, privyID)
	if err != nil {
		return balancer.User{}, false, err
	}
	return user, true, nil
}

// RequireProfile resolves the user and fails with a registration error when
// the wallet is unregistered or the profile is incomplete. Session and
// expense operations call this before doing anything else.
func (c *Client) RequireProfile(ctx context.Context, privyID, wallet string) (balancer.User, error) {
	user, registered, err := c.ResolveUser(ctx, privyID, wallet)
	if err != nil {
		return balancer.User{}, err
	}
	if !registered {
		return balancer.User{}, balancer.NewError(balancer.ErrCodeRegistration, "wallet is not registered", nil)
	}
	if !user.IsProfileComplete {
		return balancer.User{}, balancer.NewError(balancer.ErrCodeRegistration, "profile is incomplete", nil)
	}
	return user, nil
}

// SaveProfile creates or updates the profile, choosing POST or PUT by
// whether the backend has assigned a record id yet.
func (c *Client) SaveProfile(ctx context.Context, user balancer.User) (balancer.User, error) {
	if user.ID == 0 {
		return c.API.CreateUser(ctx, user)
	}
	return c.API.UpdateUser(ctx, user)
}
