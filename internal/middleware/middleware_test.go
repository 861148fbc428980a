package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
)

const (
	pingProcedure = "/test.v1.EchoService/Ping"
	openProcedure = "/test.v1.EchoService/Open"
)

type ping struct{}

type pong struct {
	UserID string `json:"userId"`
}

func echo(ctx context.Context, _ *connect.Request[ping]) (*connect.Response[pong], error) {
	return connect.NewResponse(&pong{UserID: middleware.GetUserID(ctx)}), nil
}

func newEchoServer(t *testing.T, interceptors ...connect.Interceptor) (pingClient, openClient *connect.Client[ping, pong]) {
	t.Helper()
	opts := []connect.HandlerOption{connect.WithCodec(api.Codec{}), connect.WithInterceptors(interceptors...)}

	mux := http.NewServeMux()
	mux.Handle(pingProcedure, connect.NewUnaryHandler(pingProcedure, echo, opts...))
	mux.Handle(openProcedure, connect.NewUnaryHandler(openProcedure, echo, opts...))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	pingClient = connect.NewClient[ping, pong](http.DefaultClient, server.URL+pingProcedure, connect.WithCodec(api.Codec{}))
	openClient = connect.NewClient[ping, pong](http.DefaultClient, server.URL+openProcedure, connect.WithCodec(api.Codec{}))
	return pingClient, openClient
}

func withToken(token string) *connect.Request[ping] {
	req := connect.NewRequest(&ping{})
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", "splitledger-test", time.Hour)
	pingClient, openClient := newEchoServer(t, middleware.RequireAuth(jwtManager, openProcedure))
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	token, err := jwtManager.Generate(user)
	require.NoError(t, err)

	resp, err := pingClient.CallUnary(ctx, withToken(token))
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.Msg.UserID)

	_, err = pingClient.CallUnary(ctx, connect.NewRequest(&ping{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	expired := auth.NewJWTManager("secret", "splitledger-test", -time.Minute)
	stale, err := expired.Generate(user)
	require.NoError(t, err)
	_, err = pingClient.CallUnary(ctx, withToken(stale))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	other := auth.NewJWTManager("other-secret", "splitledger-test", time.Hour)
	forged, err := other.Generate(user)
	require.NoError(t, err)
	_, err = pingClient.CallUnary(ctx, withToken(forged))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	// Public procedures pass without a token.
	resp, err = openClient.CallUnary(ctx, connect.NewRequest(&ping{}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.UserID)
}

func TestRateLimiter(t *testing.T) {
	t.Run("allow is per key", func(t *testing.T) {
		rl := middleware.NewRateLimiter(0.001, 1)
		assert.True(t, rl.Allow("alice"))
		assert.False(t, rl.Allow("alice"))
		assert.True(t, rl.Allow("bob"))
	})

	t.Run("interceptor keys on the authenticated user", func(t *testing.T) {
		jwtManager := auth.NewJWTManager("secret", "splitledger-test", time.Hour)
		rl := middleware.NewRateLimiter(0.001, 1)
		pingClient, _ := newEchoServer(t, middleware.RequireAuth(jwtManager), rl.Interceptor())
		ctx := context.Background()

		alice, err := jwtManager.Generate(models.NewUser("alice@example.com", "Alice", "hash"))
		require.NoError(t, err)
		bob, err := jwtManager.Generate(models.NewUser("bob@example.com", "Bob", "hash"))
		require.NoError(t, err)

		_, err = pingClient.CallUnary(ctx, withToken(alice))
		require.NoError(t, err)
		_, err = pingClient.CallUnary(ctx, withToken(alice))
		assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))

		_, err = pingClient.CallUnary(ctx, withToken(bob))
		assert.NoError(t, err)
	})
}
