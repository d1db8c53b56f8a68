package identity

import (
	"context"
	"errors"
	"io"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, now *time.Time) *Provider {
	t.Helper()
	provider, err := NewProvider(Config{
		Secret: "test-secret",
		TTL:    time.Hour,
		Now:    func() time.Time { return *now },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return provider
}

func TestUserIDForEmailIsStable(t *testing.T) {
	t.Parallel()

	a := UserIDForEmail("Ada@Example.com ")
	b := UserIDForEmail("ada@example.com")
	if a != b || a == "" {
		t.Fatalf("expected normalized ids to match, got %q and %q", a, b)
	}
	if UserIDForEmail("grace@example.com") == a {
		t.Fatalf("expected different addresses to produce different ids")
	}
}

func TestNewProviderRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestLoginVerifyLogout(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	provider := newTestProvider(t, &now)

	var transitions []string
	provider.OnChange(func(_ context.Context, user *User) {
		if user == nil {
			transitions = append(transitions, "logout")
			return
		}
		transitions = append(transitions, "login:"+user.Email)
	})

	ctx := context.Background()
	session, err := provider.Login(ctx, "Ada <ADA@example.com>", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.Email != "ada@example.com" || session.User.Name != "Ada" {
		t.Fatalf("unexpected user %+v", session.User)
	}
	if !session.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt)
	}

	user, err := provider.Verify(session.Token)
	if err != nil || user.ID != session.User.ID {
		t.Fatalf("Verify: %+v %v", user, err)
	}

	// A repeated login refreshes the token without a transition.
	if _, err := provider.Login(ctx, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	provider.Logout(ctx)
	provider.Logout(ctx)

	want := []string{"login:ada@example.com", "logout"}
	if len(transitions) != len(want) || transitions[0] != want[0] || transitions[1] != want[1] {
		t.Fatalf("unexpected transitions %v", transitions)
	}
	if _, ok := provider.Current(); ok {
		t.Fatalf("expected nobody signed in")
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	provider := newTestProvider(t, &now)
	session, err := provider.Login(context.Background(), "ada@example.com", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	other := newTestProvider(t, &now)
	other.secret = []byte("another-secret")
	if _, err := other.Verify(session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}
	if _, err := provider.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := provider.Verify(session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := newTestProvider(t, &now)
	if _, err := provider.Login(context.Background(), "not an address", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestConcurrentLoginsLeaveListenersOnCurrentUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	provider := newTestProvider(t, &now)

	var (
		mu    sync.Mutex
		bound string
	)
	provider.OnChange(func(_ context.Context, user *User) {
		// Slow listeners widen the window between the state change and the
		// fan-out.
		time.Sleep(time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		bound = ""
		if user != nil {
			bound = user.ID
		}
	})

	for round := range 20 {
		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				email := fmt.Sprintf("user%d-%d@example.com", round, i)
				if _, err := provider.Login(context.Background(), email, ""); err != nil {
					t.Errorf("Login(%s): %v", email, err)
				}
			}()
		}
		wg.Wait()

		current, ok := provider.Current()
		mu.Lock()
		got := bound
		mu.Unlock()
		if !ok || got != current.ID {
			t.Fatalf("round %d: listeners bound %q but the current user is %q", round, got, current.ID)
		}
	}
}
