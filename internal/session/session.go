// Package session owns the visitor's authentication state. Synchronizers
// read it and subscribe to its transitions instead of polling shared state.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Gate holds the current access token and the user it belongs to.
//
// When Secret is set tokens are verified with HS256; otherwise they are only
// decoded, because the client does not own the signing key and the store
// rejects bad tokens anyway.
type Gate struct {
	Secret []byte
	Now    func() time.Time

	mu        sync.RWMutex
	token     string
	user      *User
	expiresAt time.Time

	subMu  sync.Mutex
	subs   map[int]func(authenticated bool)
	nextID int
}

func NewGate(secret []byte) *Gate {
	return &Gate{Secret: secret}
}

// SignIn installs token as the current credential and notifies subscribers.
func (g *Gate) SignIn(token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return err
	}
	if claims.Subject == "" {
		return fmt.Errorf("token has no subject: %w", ErrInvalidToken)
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	g.mu.Lock()
	g.token = token
	g.user = &User{ID: claims.Subject, Username: claims.Username, Role: claims.Role}
	g.expiresAt = exp
	g.mu.Unlock()

	g.notify(g.IsAuthenticated())
	return nil
}

// SignOut drops the credential and notifies subscribers.
func (g *Gate) SignOut() {
	g.mu.Lock()
	g.token = ""
	g.user = nil
	g.expiresAt = time.Time{}
	g.mu.Unlock()

	g.notify(false)
}

// IsAuthenticated reports whether a token is present and not expired.
func (g *Gate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.validLocked()
}

func (g *Gate) CurrentUser() *User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.validLocked() || g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// Token returns the bearer token for outgoing requests, or "" when signed out.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.validLocked() {
		return ""
	}
	return g.token
}

// validLocked must be called with g.mu held.
func (g *Gate) validLocked() bool {
	if g.token == "" {
		return false
	}
	return g.expiresAt.IsZero() || g.now().Before(g.expiresAt)
}

// Subscribe registers fn for authentication transitions. fn runs on the
// goroutine that called SignIn or SignOut.
func (g *Gate) Subscribe(fn func(authenticated bool)) (unsubscribe func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	if g.subs == nil {
		g.subs = make(map[int]func(bool))
	}
	id := g.nextID
	g.nextID++
	g.subs[id] = fn

	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Gate) notify(authenticated bool) {
	// subscription order
	g.subMu.Lock()
	fns := make([]func(bool), 0, len(g.subs))
	for i := 0; i < g.nextID; i++ {
		if fn, ok := g.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		fn(authenticated)
	}
}

func (g *Gate) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", ErrInvalidToken)
	}

	var claims Claims
	if len(g.Secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return &claims, nil
	}

	tkn, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return g.Secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
