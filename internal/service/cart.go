package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/normalize"
)

type CartStore interface {
	GetCart(ctx context.Context) (json.RawMessage, error)
	GetCartCount(ctx context.Context) (int, error)
	AddToCart(ctx context.Context, gameID models.ID, quantity int) error
	UpdateCartItem(ctx context.Context, gameID models.ID, quantity int) error
	RemoveFromCart(ctx context.Context, gameID models.ID) error
}

// CartService keeps a local copy of the visitor's cart lines and badge count.
// Mutations are never applied locally; each successful one is followed by a
// refresh of lines and count before it returns. Lines and count carry separate
// generation counters so a slow response cannot overwrite fresher state.
type CartService struct {
	Store      CartStore
	Session    Session
	Normalizer normalize.Normalizer
	Events     *events.Emitter
	Metrics    *metrics.Metrics
	Log        *slog.Logger

	mu       sync.RWMutex
	lines    []models.CartLine
	count    int
	linesGen uint64
	countGen uint64

	inFlight atomic.Int64
	bg       sync.WaitGroup
}

// Refresh replaces local lines with the remote cart. Failures are logged and
// leave the cart empty.
func (s *CartService) Refresh(ctx context.Context) {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "cart.refresh")

	gen := s.nextLinesGen()
	if !s.Session.IsAuthenticated() {
		s.commitLines(gen, nil)
		return
	}

	var lines []models.CartLine
	raw, err := s.Store.GetCart(ctx)
	if err != nil {
		l.Error("cart_refresh_failed", "error", err)
	} else {
		var skipped int
		lines, skipped = normalize.Decode[models.CartLine](s.normalizer(), raw)
		if skipped > 0 {
			l.Warn("cart_lines_skipped", "skipped", skipped)
		}
	}

	if !s.commitLines(gen, lines) {
		l.Debug("cart_refresh_discarded", "generation", gen)
		s.Metrics.StaleRefresh("cart")
	}
}

// RefreshCount fetches the badge count. Any failure sets it to 0.
func (s *CartService) RefreshCount(ctx context.Context) {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "cart.refresh_count")

	gen := s.nextCountGen()
	if !s.Session.IsAuthenticated() {
		s.commitCount(gen, 0)
		return
	}

	n, err := s.Store.GetCartCount(ctx)
	if err != nil {
		l.Error("cart_count_failed", "error", err)
		n = 0
	}
	if n < 0 {
		n = 0
	}

	if !s.commitCount(gen, n) {
		l.Debug("cart_count_discarded", "generation", gen)
		s.Metrics.StaleRefresh("cart_count")
	}
}

func (s *CartService) Add(ctx context.Context, gameID models.ID, quantity int) models.Result {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "cart.add", "game_id", gameID)

	if !s.Session.IsAuthenticated() {
		l.Warn("cart_add_rejected", "error", ErrUnauthenticated)
		return models.Fail(userMessage(ErrUnauthenticated, msgCartLogin))
	}
	if quantity < 1 {
		l.Warn("cart_add_rejected", "quantity", quantity, "error", ErrInvalidQuantity)
		return models.Fail(userMessage(ErrInvalidQuantity, msgCartLogin))
	}

	if err := s.Store.AddToCart(ctx, gameID, quantity); err != nil {
		l.Error("cart_add_failed", "error", err)
		return models.Fail(userMessage(err, msgCartLogin))
	}
	s.reconcile(ctx)

	s.Events.Emit(ctx, events.Event{Type: events.CartItemAdded, UserID: userID(s.Session), GameID: gameID, Quantity: quantity})
	return models.Ok("Item added to cart successfully!")
}

// UpdateQuantity sets the quantity of a line. The store keys updates by game
// id, so the line is resolved locally first.
func (s *CartService) UpdateQuantity(ctx context.Context, lineID models.ID, quantity int) models.Result {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "cart.update", "line_id", lineID)

	if !s.Session.IsAuthenticated() {
		l.Warn("cart_update_rejected", "error", ErrUnauthenticated)
		return models.Fail(userMessage(ErrUnauthenticated, msgCartLogin))
	}
	if quantity < 1 {
		l.Warn("cart_update_rejected", "quantity", quantity, "error", ErrInvalidQuantity)
		return models.Fail(userMessage(ErrInvalidQuantity, msgCartLogin))
	}
	gameID, err := s.resolveGame(lineID)
	if err != nil {
		l.Warn("cart_update_rejected", "error", err)
		return models.Fail(userMessage(err, msgCartLogin))
	}

	if err := s.Store.UpdateCartItem(ctx, gameID, quantity); err != nil {
		l.Error("cart_update_failed", "game_id", gameID, "error", err)
		return models.Fail(userMessage(err, msgCartLogin))
	}
	s.reconcile(ctx)

	s.Events.Emit(ctx, events.Event{Type: events.CartItemUpdated, UserID: userID(s.Session), GameID: gameID, LineID: lineID, Quantity: quantity})
	return models.Ok("Cart updated successfully!")
}

func (s *CartService) Remove(ctx context.Context, lineID models.ID) models.Result {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "cart.remove", "line_id", lineID)

	if !s.Session.IsAuthenticated() {
		l.Warn("cart_remove_rejected", "error", ErrUnauthenticated)
		return models.Fail(userMessage(ErrUnauthenticated, msgCartLogin))
	}
	gameID, err := s.resolveGame(lineID)
	if err != nil {
		l.Warn("cart_remove_rejected", "error", err)
		return models.Fail(userMessage(err, msgCartLogin))
	}

	if err := s.Store.RemoveFromCart(ctx, gameID); err != nil {
		l.Error("cart_remove_failed", "game_id", gameID, "error", err)
		return models.Fail(userMessage(err, msgCartLogin))
	}
	s.reconcile(ctx)

	s.Events.Emit(ctx, events.Event{Type: events.CartItemRemoved, UserID: userID(s.Session), GameID: gameID, LineID: lineID})
	return models.Ok("Item removed successfully!")
}

func (s *CartService) Items() []models.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *CartService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Contains reports whether any local line holds gameID.
func (s *CartService) Contains(gameID models.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, line := range s.lines {
		if line.GameID == gameID {
			return true
		}
	}
	return false
}

func (s *CartService) Loading() bool {
	return s.inFlight.Load() > 0
}

// Clear drops local state and invalidates refreshes already in flight.
func (s *CartService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linesGen++
	s.countGen++
	s.lines = nil
	s.count = 0
}

// OnSessionChange is subscribed to the session gate. Any transition clears
// the cart; signing in also refetches lines and count in the background.
func (s *CartService) OnSessionChange(authenticated bool) {
	s.Clear()
	if !authenticated {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.reconcile(context.Background())
	}()
}

func (s *CartService) Wait() {
	s.bg.Wait()
}

func (s *CartService) reconcile(ctx context.Context) {
	s.Refresh(ctx)
	s.RefreshCount(ctx)
}

func (s *CartService) resolveGame(lineID models.ID) (models.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, line := range s.lines {
		if line.LineID != lineID {
			continue
		}
		if line.GameID == 0 {
			return 0, fmt.Errorf("line %s: %w", lineID, ErrGameUnresolved)
		}
		return line.GameID, nil
	}
	return 0, fmt.Errorf("line %s: %w", lineID, ErrLineNotFound)
}

func (s *CartService) nextLinesGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linesGen++
	return s.linesGen
}

func (s *CartService) nextCountGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countGen++
	return s.countGen
}

func (s *CartService) commitLines(gen uint64, lines []models.CartLine) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.linesGen {
		return false
	}
	s.lines = lines
	return true
}

func (s *CartService) commitCount(gen uint64, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.countGen {
		return false
	}
	s.count = n
	return true
}

func (s *CartService) track() func() {
	s.inFlight.Add(1)
	return func() { s.inFlight.Add(-1) }
}

func (s *CartService) normalizer() normalize.Normalizer {
	if len(s.Normalizer.Fields) == 0 {
		return normalize.New(normalize.CartFields...)
	}
	return s.Normalizer
}
