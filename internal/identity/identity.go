// Package identity is the mocked identity provider. Users are identified by a
// stable id derived from their e-mail address, sessions are HS256 signed
// tokens, and login/logout transitions are broadcast to listeners so the
// workspace can reload the matching aggregate.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "bizdesk"

var (
	// ErrInvalidEmail is returned when a login does not carry a usable address.
	ErrInvalidEmail = errors.New("identity: invalid email")
	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrMissingSecret is returned when the provider has no signing secret.
	ErrMissingSecret = errors.New("identity: signing secret is required")
)

// userNamespace seeds the name based ids so they are stable across restarts.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://bizdesk.local/users"))

// User is an authenticated principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Listener observes identity transitions. user is nil after logout.
type Listener func(ctx context.Context, user *User)

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Config wires a Provider.
type Config struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// Provider issues and verifies session tokens and tracks the signed-in user.
type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	// transition serialises sign-in and sign-out together with their
	// listener fan-out, so listeners observe transitions in the order the
	// current user changed.
	transition sync.Mutex

	mu        sync.Mutex
	current   *User
	listeners []Listener
}

// NewProvider validates cfg and returns a provider with nobody signed in.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
		logger: logger.With("component", "identity.Provider"),
	}, nil
}

// UserIDForEmail derives the stable user id of an address. Case and
// surrounding whitespace are ignored.
func UserIDForEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return uuid.NewSHA1(userNamespace, []byte(normalized)).String()
}

// OnChange registers fn for login and logout transitions. Listeners run
// synchronously in registration order and must not call Login or Logout.
func (p *Provider) OnChange(fn Listener) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Current returns the signed-in user.
func (p *Provider) Current() (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return User{}, false
	}
	return *p.current, true
}

// Login signs email in, replacing any previous user, and returns a session
// token. Logging in again as the current user refreshes the token without a
// transition.
func (p *Provider) Login(ctx context.Context, email, name string) (Session, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	normalized := strings.ToLower(addr.Address)
	user := User{ID: UserIDForEmail(normalized), Email: normalized, Name: strings.TrimSpace(name)}
	if user.Name == "" {
		user.Name = addr.Name
	}

	issuedAt := p.now()
	expiresAt := issuedAt.Add(p.ttl)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}

	p.transition.Lock()
	defer p.transition.Unlock()

	p.mu.Lock()
	changed := p.current == nil || p.current.ID != user.ID
	signedIn := user
	p.current = &signedIn
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	if changed {
		p.logger.InfoContext(ctx, "user signed in", "user_id", user.ID)
		for _, fn := range listeners {
			fn(ctx, &user)
		}
	}
	return Session{Token: token, ExpiresAt: expiresAt.UTC(), User: user}, nil
}

// Logout signs the current user out. It is a no-op when nobody is signed in.
func (p *Provider) Logout(ctx context.Context) {
	p.transition.Lock()
	defer p.transition.Unlock()

	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	previous := p.current.ID
	p.current = nil
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "user signed out", "user_id", previous)
	for _, fn := range listeners {
		fn(ctx, nil)
	}
}

// Verify checks the token signature and expiry and returns its user.
func (p *Provider) Verify(token string) (User, error) {
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Subject == "" || parsed.Subject != UserIDForEmail(parsed.Email) {
		return User{}, ErrInvalidToken
	}
	return User{ID: parsed.Subject, Email: parsed.Email, Name: parsed.Name}, nil
}
