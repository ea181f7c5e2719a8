package api

import (
	"context"
	"encoding/json"
	"net/url"

	balancer "github.com/expensesbalancer/balancer-go"
)

// RegistrationCheck is the response of GET /api/user/check.
type RegistrationCheck struct {
	IsRegistered  bool   `json:"isRegistered"`
	IsInvited     bool   `json:"isInvited"`
	WalletAddress string `json:"walletAddress"`
}

// CheckUser reports whether the auth-provider id maps to a registered
// profile and whether the wallet has outstanding session invites.
func (c *Client) CheckUser(ctx context.Context, privyID, wallet string) (RegistrationCheck, error) {
	q := url.Values{}
	q.Set("privy_id", privyID)
	q.Set("wallet_address", wallet)

	body, err := c.get(ctx, "/api/user/check?"+q.Encode())
	if err != nil {
		return RegistrationCheck{}, err
	}

	var check RegistrationCheck
	if err := json.Unmarshal(body, &check); err != nil {
		return RegistrationCheck{}, balancer.WrapError(balancer.ErrCodeNetwork, "decode registration check", err)
	}
	return check, nil
}

// GetUser fetches a user record by its auth-provider id.
func (c *Client) GetUser(ctx context.Context, privyID string) (balancer.User, error) {
	body, err := c.get(ctx, "/api/user/"+url.PathEscape(privyID))
	if err != nil {
		return balancer.User{}, err
	}

	var user balancer.User
	if err := json.Unmarshal(body, &user); err != nil {
		return balancer.User{}, balancer.WrapError(balancer.ErrCodeNetwork, "decode user", err)
	}
	return user, nil
}

// CreateUser registers a new profile.
func (c *Client) CreateUser(ctx context.Context, user balancer.User) (balancer.User, error) {
	body, err := c.post(ctx, "/api/user", user)
	if err != nil {
		return balancer.User{}, err
	}

	var created balancer.User
	if err := json.Unmarshal(body, &created); err != nil {
		return balancer.User{}, balancer.WrapError(balancer.ErrCodeNetwork, "decode created user", err)
	}
	return created, nil
}

// UpdateUser replaces an existing profile record.
func (c *Client) UpdateUser(ctx context.Context, user balancer.User) (balancer.User, error) {
	body, err := c.put(ctx, "/api/user/"+url.PathEscape(user.PrivyID), user)
	if err != nil {
		return balancer.User{}, err
	}

	var updated balancer.User
	if err := json.Unmarshal(body, &updated); err != nil {
		return balancer.User{}, balancer.WrapError(balancer.ErrCodeNetwork, "decode updated user", err)
	}
	return updated, nil
}
