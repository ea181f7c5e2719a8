// Package api is the HTTP client for the split-bill REST backend. It covers
// the session, expense and user endpoints; all session lifecycle decisions
// live one layer up in the session coordinator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	balancer "github.com/expensesbalancer/balancer-go"
)

// DefaultBackendURL is the development backend.
const DefaultBackendURL = "http://localhost:8000"

// DefaultTimeout bounds each request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, without the /api suffix.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s). Ignored when
	// HTTPClient is set.
	Timeout time.Duration
}

// Client talks to the split-bill backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client. A nil config uses the defaults.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// sessionsResponse is the envelope of GET /api/sessions/{wallet}.
type sessionsResponse struct {
	Sessions []balancer.Session `json:"sessions"`
}

// UserSessions lists the sessions the wallet belongs to.
func (c *Client) UserSessions(ctx context.Context, wallet string) ([]balancer.Session, error) {
	body, err := c.get(ctx, "/api/sessions/"+wallet)
	if err != nil {
		return nil, err
	}

	if err := validateDocument(sessionListSchema, body); err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeNetwork, "malformed session list response", err)
	}

	var resp sessionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeNetwork, "decode session list", err)
	}
	return resp.Sessions, nil
}

// JoinSession records the wallet's join acknowledgment for a session.
func (c *Client) JoinSession(ctx context.Context, sessionID int64, wallet string) error {
	payload := map[string]string{"walletAddress": wallet}
	_, err := c.post(ctx, fmt.Sprintf("/api/sessions/%d/join", sessionID), payload)
	return err
}

// ActivateSession flips the backend session state to Active. The coordinator
// calls this once on-chain quorum is confirmed.
func (c *Client) ActivateSession(ctx context.Context, sessionID int64, wallet string) error {
	payload := map[string]string{"walletAddress": wallet}
	_, err := c.post(ctx, fmt.Sprintf("/api/sessions/%d/activate", sessionID), payload)
	return err
}

// CreateSessionRequest is the body of POST /create_session. The id comes
// from the on-chain session creation, which always runs first.
type CreateSessionRequest struct {
	ID           int64                      `json:"id"`
	State        balancer.SessionState      `json:"state"`
	Fiat         string                     `json:"fiat"`
	QtyUsers     int                        `json:"qty_users"`
	Participants []CreateSessionParticipant `json:"participants"`
}

// CreateSessionParticipant is one invited wallet in a session creation. The
// organizer is listed first with Joined already true.
type CreateSessionParticipant struct {
	WalletAddress string `json:"walletAddress"`
	Joined        bool   `json:"joined"`
}

// CreateSession persists the backend mirror of an on-chain session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (balancer.Session, error) {
	body, err := c.post(ctx, "/create_session", req)
	if err != nil {
		return balancer.Session{}, err
	}

	var session balancer.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return balancer.Session{}, balancer.WrapError(balancer.ErrCodeNetwork, "decode created session", err)
	}
	return session, nil
}

// SessionDetails fetches the canonical session view: the session record, its
// participants and its full expense ledger.
func (c *Client) SessionDetails(ctx context.Context, sessionID int64) (balancer.SessionDetails, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/fetch_sessions/%d", sessionID))
	if err != nil {
		return balancer.SessionDetails{}, err
	}

	if err := validateDocument(sessionDetailsSchema, body); err != nil {
		return balancer.SessionDetails{}, balancer.WrapError(balancer.ErrCodeNetwork, "malformed session details response", err)
	}

	var details balancer.SessionDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return balancer.SessionDetails{}, balancer.WrapError(balancer.ErrCodeNetwork, "decode session details", err)
	}
	return details, nil
}

// createExpensesRequest is the body of POST /create_expense.
type createExpensesRequest struct {
	SessionID int64                     `json:"session_id"`
	Expenses  []balancer.PendingExpense `json:"expenses"`
}

// CreateExpenses submits a batch of pending expenses. The batch is atomic on
// the backend side: either all records are created or none are.
func (c *Client) CreateExpenses(ctx context.Context, sessionID int64, expenses []balancer.PendingExpense) ([]balancer.Expense, error) {
	req := createExpensesRequest{SessionID: sessionID, Expenses: expenses}
	body, err := c.post(ctx, "/create_expense", req)
	if err != nil {
		return nil, err
	}

	var created []balancer.Expense
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeNetwork, "decode created expenses", err)
	}
	return created, nil
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// post performs a POST with a JSON body and returns the body of a 2xx
// response. Every mutating call carries a client-generated idempotency key
// so a user-triggered retry after a transport failure cannot double-apply.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	return c.do(req)
}

// put performs a PUT with a JSON body, with the same idempotency-key
// convention as post.
func (c *Client) put(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeNetwork, fmt.Sprintf("%s %s", req.Method, req.URL.Path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, balancer.WrapError(balancer.ErrCodeNetwork, "read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, balancer.NewError(
			balancer.ErrCodeNetwork,
			fmt.Sprintf("backend %s %s failed (%d): %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body))),
			map[string]interface{}{"status": resp.StatusCode},
		)
	}

	return body, nil
}
