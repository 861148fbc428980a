package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/analytics"
	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

// testEnv is a server with every service mounted behind the real auth
// interceptor, and a client per service.
type testEnv struct {
	store     *sqlite.SQLiteStore
	auth      api.AuthServiceClient
	groups    api.GroupServiceClient
	bills     api.BillServiceClient
	debts     api.DebtServiceClient
	analytics api.AnalyticsServiceClient
}

type testUser struct {
	ID    string
	Token string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := logging.New(os.Stderr, slog.LevelWarn)
	directory := cache.NewUserDirectory(store, cache.NewMemory(), time.Minute)
	jwtManager := auth.NewJWTManager("test-secret", "splitledger-test", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.MinCost)

	aggregator := analytics.NewAggregator(store)
	guard := ledger.NewGuard(store)
	cfg := ledger.DefaultConfig()
	bills := ledger.NewBillManager(store, store, guard, aggregator, cfg)
	debts := ledger.NewDebtLedger(store, store, directory, store, guard, aggregator, cfg)

	opts := connect.WithInterceptors(middleware.RequireAuth(jwtManager, api.PublicProcedures...))

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, directory, logger), opts))
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, guard), opts))
	mux.Handle(api.NewBillServiceHandler(NewBillService(bills), opts))
	mux.Handle(api.NewDebtServiceHandler(NewDebtService(debts), opts))
	mux.Handle(api.NewAnalyticsServiceHandler(NewAnalyticsService(aggregator, guard), opts))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		store:     store,
		auth:      api.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups:    api.NewGroupServiceClient(http.DefaultClient, server.URL),
		bills:     api.NewBillServiceClient(http.DefaultClient, server.URL),
		debts:     api.NewDebtServiceClient(http.DefaultClient, server.URL),
		analytics: api.NewAnalyticsServiceClient(http.DefaultClient, server.URL),
	}
}

func (e *testEnv) register(t *testing.T, name string) testUser {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       name + "@example.com",
		DisplayName: name,
		Password:    "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Register %s failed: %v", name, err)
	}
	return testUser{ID: resp.Msg.User.ID, Token: resp.Msg.Token}
}

// createGroup creates a group owned by owner with the others as members.
func (e *testEnv) createGroup(t *testing.T, owner testUser, others ...testUser) *models.Group {
	t.Helper()
	members := make([]api.MemberInput, len(others))
	for i, u := range others {
		members[i] = api.MemberInput{UserID: u.ID}
	}
	resp, err := e.groups.CreateGroup(context.Background(), as(owner, &api.CreateGroupRequest{
		Name:    "Roommates",
		Members: members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

// as builds a request carrying the bearer token of u.
func as[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+u.Token)
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("expected code %v, got %v (%v)", want, got, err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	alice := env.register(t, "alice")
	if alice.Token == "" {
		t.Fatal("expected a token on registration")
	}

	resp, err := env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Msg.User.ID != alice.ID {
		t.Errorf("expected user %s, got %s", alice.ID, resp.Msg.User.ID)
	}

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "duplicate email",
			call: func() error {
				_, err := env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
					Email: "alice@example.com", DisplayName: "Alice", Password: "correct-horse",
				}))
				return err
			},
			want: connect.CodeAlreadyExists,
		},
		{
			name: "weak password",
			call: func() error {
				_, err := env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
					Email: "bob@example.com", DisplayName: "Bob", Password: "short",
				}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "invalid email",
			call: func() error {
				_, err := env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
					Email: "not-an-email", DisplayName: "Bob", Password: "correct-horse",
				}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "wrong password",
			call: func() error {
				_, err := env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
					Email: "alice@example.com", Password: "wrong-password",
				}))
				return err
			},
			want: connect.CodeUnauthenticated,
		},
		{
			name: "missing token",
			call: func() error {
				_, err := env.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
				return err
			},
			want: connect.CodeUnauthenticated,
		},
		{
			name: "forged token",
			call: func() error {
				_, err := env.auth.GetCurrentUser(ctx, as(testUser{Token: "not.a.jwt"}, &api.GetCurrentUserRequest{}))
				return err
			},
			want: connect.CodeUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.want)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	// Warm the profile cache first so the update has to invalidate it.
	if _, err := env.auth.GetCurrentUser(ctx, as(alice, &api.GetCurrentUserRequest{})); err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}

	if _, err := env.auth.UpdateProfile(ctx, as(alice, &api.UpdateProfileRequest{DisplayName: "  Alice L.  "})); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	resp, err := env.auth.GetCurrentUser(ctx, as(alice, &api.GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.DisplayName != "Alice L." {
		t.Errorf("expected display name 'Alice L.', got %q", resp.Msg.User.DisplayName)
	}

	_, err = env.auth.UpdateProfile(ctx, as(alice, &api.UpdateProfileRequest{DisplayName: " "}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestGroupService(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	charlie := env.register(t, "charlie")
	dave := env.register(t, "dave")

	group := env.createGroup(t, alice, bob)
	if len(group.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(group.Members))
	}
	if m, _ := group.Member(alice.ID); m.Role != models.RoleOwner {
		t.Errorf("expected creator to be owner, got %q", m.Role)
	}

	t.Run("members can read", func(t *testing.T) {
		resp, err := env.groups.GetGroup(ctx, as(bob, &api.GetGroupRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if resp.Msg.Group.Name != "Roommates" {
			t.Errorf("expected name Roommates, got %q", resp.Msg.Group.Name)
		}
	})

	t.Run("outsiders cannot read", func(t *testing.T) {
		_, err := env.groups.GetGroup(ctx, as(dave, &api.GetGroupRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := env.groups.GetGroup(ctx, as(alice, &api.GetGroupRequest{GroupID: "missing"}))
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("plain members cannot add members", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(bob, &api.AddMemberRequest{GroupID: group.ID, UserID: charlie.ID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("owner adds an admin", func(t *testing.T) {
		resp, err := env.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{
			GroupID: group.ID, UserID: charlie.ID, Role: models.RoleAdmin,
		}))
		if err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if m, ok := resp.Msg.Group.Member(charlie.ID); !ok || m.Role != models.RoleAdmin {
			t.Errorf("expected charlie to be admin, got %+v", m)
		}
	})

	t.Run("admins cannot add admins", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(charlie, &api.AddMemberRequest{
			GroupID: group.ID, UserID: dave.ID, Role: models.RoleAdmin,
		}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("duplicate member", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{GroupID: group.ID, UserID: bob.ID}))
		assertCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{GroupID: group.ID, UserID: "ghost"}))
		assertCode(t, err, connect.CodeNotFound)
	})

	t.Run("second owner rejected", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(alice, &api.AddMemberRequest{
			GroupID: group.ID, UserID: dave.ID, Role: models.RoleOwner,
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := env.groups.CreateGroup(ctx, as(alice, &api.CreateGroupRequest{Name: "  "}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})
}

func TestArchiveGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	group := env.createGroup(t, alice, bob)

	_, err := env.groups.ArchiveGroup(ctx, as(bob, &api.ArchiveGroupRequest{GroupID: group.ID, Archived: true}))
	assertCode(t, err, connect.CodePermissionDenied)

	resp, err := env.groups.ArchiveGroup(ctx, as(alice, &api.ArchiveGroupRequest{GroupID: group.ID, Archived: true}))
	if err != nil {
		t.Fatalf("ArchiveGroup failed: %v", err)
	}
	if !resp.Msg.Group.IsArchived {
		t.Error("expected group to be archived")
	}

	// Archived groups stay readable but reject new bills.
	if _, err := env.groups.GetGroup(ctx, as(bob, &api.GetGroupRequest{GroupID: group.ID})); err != nil {
		t.Errorf("GetGroup on archived group failed: %v", err)
	}
	_, err = env.bills.CreateBill(ctx, as(alice, &api.CreateBillRequest{
		GroupID:      group.ID,
		Amount:       10,
		Participants: []models.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
	}))
	assertCode(t, err, connect.CodePermissionDenied)

	if _, err := env.groups.ArchiveGroup(ctx, as(alice, &api.ArchiveGroupRequest{GroupID: group.ID, Archived: false})); err != nil {
		t.Fatalf("restoring group failed: %v", err)
	}
	_, err = env.bills.CreateBill(ctx, as(alice, &api.CreateBillRequest{
		GroupID:      group.ID,
		Amount:       10,
		Participants: []models.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
	}))
	if err != nil {
		t.Errorf("CreateBill after restore failed: %v", err)
	}
}
