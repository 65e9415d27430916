package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/storetest"
	"github.com/Skotchmaster/storefront/pkg/storeclient"
)

type fakeSession struct {
	authed atomic.Bool
}

func signedIn() *fakeSession {
	s := &fakeSession{}
	s.authed.Store(true)
	return s
}

func (f *fakeSession) IsAuthenticated() bool { return f.authed.Load() }

func (f *fakeSession) CurrentUser() *session.User {
	if !f.authed.Load() {
		return nil
	}
	return &session.User{ID: "42", Username: "player"}
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) PublishEvent(_ context.Context, _, _ string, ev any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.(events.Event))
	return nil
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func testGames() []models.Game {
	return []models.Game{
		{ID: 1, Title: "Hollow Knight", OriginalPrice: decimal.RequireFromString("15")},
		{ID: 2, Title: "Celeste", OriginalPrice: decimal.RequireFromString("20")},
		{ID: 5, Title: "Doom", OriginalPrice: decimal.RequireFromString("40")},
	}
}

func newClient(t *testing.T, store *storetest.Store) *storeclient.Client {
	t.Helper()
	return storeclient.NewClient(store.URL(), 2*time.Second, nil, nil)
}

func newWishlist(t *testing.T, store WishlistStore, sess Session) *WishlistService {
	t.Helper()
	return &WishlistService{Store: store, Session: sess, Log: logging.Discard()}
}

func newCart(t *testing.T, store CartStore, sess Session) *CartService {
	t.Helper()
	return &CartService{Store: store, Session: sess, Log: logging.Discard()}
}

// scriptedWishlist answers GetWishlist from a queue of functions so tests can
// control ordering of overlapping refreshes.
type scriptedWishlist struct {
	mu        sync.Mutex
	gets      []func() (json.RawMessage, error)
	toggleErr error
	toggles   atomic.Int32
}

func (s *scriptedWishlist) GetWishlist(context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	if len(s.gets) == 0 {
		s.mu.Unlock()
		return json.RawMessage(`[]`), nil
	}
	next := s.gets[0]
	s.gets = s.gets[1:]
	s.mu.Unlock()
	return next()
}

func (s *scriptedWishlist) ToggleWishlist(context.Context, models.ID) error {
	s.toggles.Add(1)
	return s.toggleErr
}

func (s *scriptedWishlist) push(fns ...func() (json.RawMessage, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, fns...)
}

func respond(body string) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return json.RawMessage(body), nil }
}

// blocking signals started, then waits for release before answering body.
func blocking(started chan<- struct{}, release <-chan struct{}, body string) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) {
		close(started)
		<-release
		return json.RawMessage(body), nil
	}
}

// scriptedCart answers GetCart and GetCartCount from queues; every mutation
// returns mutateErr.
type scriptedCart struct {
	mu        sync.Mutex
	gets      []func() (json.RawMessage, error)
	counts    []func() (int, error)
	mutateErr error
	mutations atomic.Int32
}

func (s *scriptedCart) GetCart(context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	if len(s.gets) == 0 {
		s.mu.Unlock()
		return json.RawMessage(`[]`), nil
	}
	next := s.gets[0]
	s.gets = s.gets[1:]
	s.mu.Unlock()
	return next()
}

func (s *scriptedCart) GetCartCount(context.Context) (int, error) {
	s.mu.Lock()
	if len(s.counts) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	next := s.counts[0]
	s.counts = s.counts[1:]
	s.mu.Unlock()
	return next()
}

func (s *scriptedCart) AddToCart(context.Context, models.ID, int) error {
	s.mutations.Add(1)
	return s.mutateErr
}

func (s *scriptedCart) UpdateCartItem(context.Context, models.ID, int) error {
	s.mutations.Add(1)
	return s.mutateErr
}

func (s *scriptedCart) RemoveFromCart(context.Context, models.ID) error {
	s.mutations.Add(1)
	return s.mutateErr
}

func (s *scriptedCart) pushLines(fns ...func() (json.RawMessage, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, fns...)
}

func (s *scriptedCart) pushCounts(fns ...func() (int, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, fns...)
}

func countOf(n int) func() (int, error) {
	return func() (int, error) { return n, nil }
}

func blockingCount(started chan<- struct{}, release <-chan struct{}, n int) func() (int, error) {
	return func() (int, error) {
		close(started)
		<-release
		return n, nil
	}
}
