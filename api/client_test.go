package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	balancer "github.com/expensesbalancer/balancer-go"
)

// newBackend spins up a gin router standing in for the REST backend.
func newBackend(t *testing.T, register func(*gin.Engine)) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return NewClient(&Config{BaseURL: server.URL})
}

func TestUserSessions(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/sessions/:wallet", func(c *gin.Context) {
			assert.Equal(t, "0xabc", c.Param("wallet"))
			c.JSON(http.StatusOK, gin.H{
				"sessions": []gin.H{
					{
						"id":          1,
						"created_at":  "2025-03-01T12:00:00Z",
						"state":       "PendingUsers",
						"fiat":        "usdc",
						"total_spent": 0,
						"qty_users":   2,
						"is_joined":   true,
					},
				},
			})
		})
	})

	sessions, err := client.UserSessions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(1), sessions[0].ID)
	assert.Equal(t, balancer.StatePendingUsers, sessions[0].State)
	assert.True(t, sessions[0].IsJoined)
}

func TestUserSessionsRejectsUnknownState(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/sessions/:wallet", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"sessions": []gin.H{
					{"id": 1, "state": "Closed", "fiat": "usdc", "qty_users": 2},
				},
			})
		})
	})

	_, err := client.UserSessions(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Equal(t, balancer.ErrCodeNetwork, balancer.CodeOf(err))
}

func TestUserSessionsNon2xx(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/sessions/:wallet", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "boom")
		})
	})

	_, err := client.UserSessions(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Equal(t, balancer.ErrCodeNetwork, balancer.CodeOf(err))
}

func TestJoinAndActivateSession(t *testing.T) {
	var joinKey, activateKey string

	client := newBackend(t, func(r *gin.Engine) {
		r.POST("/api/sessions/:id/join", func(c *gin.Context) {
			joinKey = c.GetHeader("Idempotency-Key")

			var body map[string]string
			require.NoError(t, c.BindJSON(&body))
			assert.Equal(t, "0xabc", body["walletAddress"])
			c.Status(http.StatusOK)
		})
		r.POST("/api/sessions/:id/activate", func(c *gin.Context) {
			activateKey = c.GetHeader("Idempotency-Key")
			c.Status(http.StatusOK)
		})
	})

	ctx := context.Background()
	require.NoError(t, client.JoinSession(ctx, 9, "0xabc"))
	require.NoError(t, client.ActivateSession(ctx, 9, "0xabc"))

	// Every mutating call carries its own idempotency key.
	assert.NotEmpty(t, joinKey)
	assert.NotEmpty(t, activateKey)
	assert.NotEqual(t, joinKey, activateKey)
}

func TestCreateSession(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.POST("/create_session", func(c *gin.Context) {
			var req CreateSessionRequest
			require.NoError(t, c.BindJSON(&req))
			assert.Equal(t, int64(5), req.ID)
			assert.Equal(t, balancer.StatePendingUsers, req.State)
			require.Len(t, req.Participants, 2)
			assert.True(t, req.Participants[0].Joined)
			assert.False(t, req.Participants[1].Joined)

			c.JSON(http.StatusCreated, gin.H{
				"id":         5,
				"created_at": "2025-03-01T12:00:00Z",
				"state":      "PendingUsers",
				"fiat":       "usdc",
				"qty_users":  2,
			})
		})
	})

	session, err := client.CreateSession(context.Background(), CreateSessionRequest{
		ID:       5,
		State:    balancer.StatePendingUsers,
		Fiat:     "usdc",
		QtyUsers: 2,
		Participants: []CreateSessionParticipant{
			{WalletAddress: "0xaa", Joined: true},
			{WalletAddress: "0xbb", Joined: false},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), session.ID)
	assert.Equal(t, balancer.StatePendingUsers, session.State)
}

func detailsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session": gin.H{
			"id": 5, "created_at": "2025-03-01T12:00:00Z", "state": "Active",
			"fiat": "usdc", "total_spent": 900, "qty_users": 2,
		},
		"participants": []gin.H{
			{"id": 1, "name": "ana", "walletAddress": "0xaa", "joined": true, "total_spent": 600},
			{"id": 2, "name": "bo", "walletAddress": "0xbb", "joined": true, "total_spent": 300},
		},
		"expenses": []gin.H{
			{"id": 11, "session_id": 5, "user_id": 1, "amount": 600, "description": "dinner", "date": "2025-03-01T20:00:00Z"},
			{"id": 12, "session_id": 5, "user_id": 2, "amount": 300, "description": "taxi", "date": "2025-03-02T01:00:00Z"},
		},
	})
}

func TestSessionDetails(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/fetch_sessions/:id", detailsHandler)
	})

	details, err := client.SessionDetails(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), details.Session.ID)
	require.Len(t, details.Participants, 2)
	require.Len(t, details.Expenses, 2)
	assert.Equal(t, "dinner", details.Expenses[0].Description)
	assert.Equal(t, time.Date(2025, 3, 2, 1, 0, 0, 0, time.UTC), details.Expenses[1].Date)
}

func TestSessionDetailsRefetchIsIdentical(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/fetch_sessions/:id", detailsHandler)
	})

	ctx := context.Background()
	first, err := client.SessionDetails(ctx, 5)
	require.NoError(t, err)
	second, err := client.SessionDetails(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSessionDetailsRejectsMissingParticipants(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/fetch_sessions/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"session":  gin.H{"id": 5, "state": "Active", "fiat": "usdc", "qty_users": 2},
				"expenses": []gin.H{},
			})
		})
	})

	_, err := client.SessionDetails(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, balancer.ErrCodeNetwork, balancer.CodeOf(err))
}

func TestCreateExpenses(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.POST("/create_expense", func(c *gin.Context) {
			var req struct {
				SessionID int64                     `json:"session_id"`
				Expenses  []balancer.PendingExpense `json:"expenses"`
			}
			require.NoError(t, c.BindJSON(&req))
			assert.Equal(t, int64(5), req.SessionID)
			require.Len(t, req.Expenses, 2)

			c.JSON(http.StatusCreated, []gin.H{
				{"id": 21, "session_id": 5, "user_id": 1, "amount": 600, "description": "dinner", "date": "2025-03-01T20:00:00Z"},
				{"id": 22, "session_id": 5, "user_id": 2, "amount": 300, "description": "taxi", "date": "2025-03-01T21:00:00Z"},
			})
		})
	})

	created, err := client.CreateExpenses(context.Background(), 5, []balancer.PendingExpense{
		{UserID: 1, Amount: 600, Description: "dinner"},
		{UserID: 2, Amount: 300, Description: "taxi"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, int64(21), created[0].ID)
}

func TestCheckUser(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/user/check", func(c *gin.Context) {
			assert.Equal(t, "did:privy:123", c.Query("privy_id"))
			assert.Equal(t, "0xabc", c.Query("wallet_address"))
			c.JSON(http.StatusOK, gin.H{
				"isRegistered":  true,
				"isInvited":     false,
				"walletAddress": "0xabc",
			})
		})
	})

	check, err := client.CheckUser(context.Background(), "did:privy:123", "0xabc")
	require.NoError(t, err)
	assert.True(t, check.IsRegistered)
	assert.False(t, check.IsInvited)
	assert.Equal(t, "0xabc", check.WalletAddress)
}

func TestUserCRUD(t *testing.T) {
	client := newBackend(t, func(r *gin.Engine) {
		r.GET("/api/user/:id", func(c *gin.Context) {
			assert.Equal(t, "did:privy:123", c.Param("id"))
			c.JSON(http.StatusOK, gin.H{
				"id": 3, "privy_id": "did:privy:123", "name": "ana",
				"email": "ana@example.com", "walletAddress": "0xabc",
				"is_profile_complete": true,
			})
		})
		r.POST("/api/user", func(c *gin.Context) {
			var user balancer.User
			require.NoError(t, c.BindJSON(&user))
			user.ID = 3
			c.JSON(http.StatusCreated, user)
		})
		r.PUT("/api/user/:id", func(c *gin.Context) {
			var user balancer.User
			require.NoError(t, c.BindJSON(&user))
			user.IsProfileComplete = true
			c.JSON(http.StatusOK, user)
		})
	})

	ctx := context.Background()

	fetched, err := client.GetUser(ctx, "did:privy:123")
	require.NoError(t, err)
	assert.Equal(t, int64(3), fetched.ID)
	assert.True(t, fetched.IsProfileComplete)

	created, err := client.CreateUser(ctx, balancer.User{PrivyID: "did:privy:123", Name: "ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)

	updated, err := client.UpdateUser(ctx, created)
	require.NoError(t, err)
	assert.True(t, updated.IsProfileComplete)
}
