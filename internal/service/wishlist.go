package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/normalize"
)

type WishlistStore interface {
	GetWishlist(ctx context.Context) (json.RawMessage, error)
	ToggleWishlist(ctx context.Context, gameID models.ID) error
}

// WishlistService keeps a local copy of the visitor's wishlist. Mutations
// flip membership optimistically and then reconcile with a full refresh.
//
// Refreshes, optimistic flips and Clear bump a generation counter. A refresh
// only commits when nothing newer has happened since it began, so a slow
// response can never overwrite fresher state. A failed remote call leaves the
// counter alone so a refresh already in flight still lands.
type WishlistService struct {
	Store      WishlistStore
	Session    Session
	Normalizer normalize.Normalizer
	Events     *events.Emitter
	Metrics    *metrics.Metrics
	Log        *slog.Logger

	mu      sync.RWMutex
	entries []models.WishlistEntry
	members map[models.ID]bool
	// game id -> generation of the unconfirmed optimistic flip
	pending map[models.ID]uint64
	gen     uint64

	inFlight atomic.Int64
	bg       sync.WaitGroup
}

// Refresh replaces local state with the remote wishlist. Failures are logged
// and leave the wishlist empty.
func (s *WishlistService) Refresh(ctx context.Context) {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "wishlist.refresh")

	gen := s.nextGen()
	if !s.Session.IsAuthenticated() {
		s.commit(gen, nil)
		return
	}

	var entries []models.WishlistEntry
	raw, err := s.Store.GetWishlist(ctx)
	if err != nil {
		l.Error("wishlist_refresh_failed", "error", err)
	} else {
		entries = s.decode(l, raw)
	}

	if !s.commit(gen, entries) {
		l.Debug("wishlist_refresh_discarded", "generation", gen)
		s.Metrics.StaleRefresh("wishlist")
	}
}

func (s *WishlistService) decode(l *slog.Logger, raw []byte) []models.WishlistEntry {
	decoded, skipped := normalize.Decode[models.WishlistEntry](s.normalizer(), raw)
	if skipped > 0 {
		l.Warn("wishlist_entries_skipped", "skipped", skipped)
	}

	entries := make([]models.WishlistEntry, 0, len(decoded))
	for _, e := range decoded {
		if e.GameID == 0 {
			continue
		}
		entries = append(entries, e)
	}
	if n := len(decoded) - len(entries); n > 0 {
		l.Warn("wishlist_entries_unresolved", "count", n)
	}
	return entries
}

// Toggle flips membership of gameID on the store, mirrors the flip locally
// and reconciles. Added/Removed in the result describe the net effect.
func (s *WishlistService) Toggle(ctx context.Context, gameID models.ID) models.Result {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "wishlist.toggle", "game_id", gameID)

	if !s.Session.IsAuthenticated() {
		l.Warn("wishlist_toggle_rejected", "error", ErrUnauthenticated)
		return models.Fail(userMessage(ErrUnauthenticated, msgWishlistLogin))
	}

	was := s.IsMember(gameID)
	if err := s.Store.ToggleWishlist(ctx, gameID); err != nil {
		l.Error("wishlist_toggle_failed", "error", err)
		return models.Fail(userMessage(err, msgWishlistLogin))
	}
	s.flip(gameID, !was)
	s.Refresh(ctx)

	added := !was
	s.Events.Emit(ctx, events.Event{Type: events.WishlistToggled, UserID: userID(s.Session), GameID: gameID, Added: &added})

	if added {
		res := models.Ok("Added to wishlist!")
		res.Added = true
		return res
	}
	res := models.Ok("Removed from wishlist!")
	res.Removed = true
	return res
}

// Remove takes gameID off the wishlist. Non-members are rejected locally.
func (s *WishlistService) Remove(ctx context.Context, gameID models.ID) models.Result {
	defer s.track()()
	l := logging.FromContext(ctx, s.Log).With("op", "wishlist.remove", "game_id", gameID)

	if !s.Session.IsAuthenticated() {
		l.Warn("wishlist_remove_rejected", "error", ErrUnauthenticated)
		return models.Fail(userMessage(ErrUnauthenticated, msgWishlistLogin))
	}
	if !s.IsMember(gameID) {
		l.Warn("wishlist_remove_rejected", "error", ErrNotMember)
		return models.Fail(userMessage(ErrNotMember, msgWishlistLogin))
	}

	if err := s.Store.ToggleWishlist(ctx, gameID); err != nil {
		l.Error("wishlist_remove_failed", "error", err)
		return models.Fail(userMessage(err, msgWishlistLogin))
	}
	s.flip(gameID, false)
	s.Refresh(ctx)

	s.Events.Emit(ctx, events.Event{Type: events.WishlistRemoved, UserID: userID(s.Session), GameID: gameID})

	res := models.Ok("Removed from wishlist!")
	res.Removed = true
	return res
}

func (s *WishlistService) IsMember(gameID models.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[gameID]
}

// Pending reports an optimistic flip of gameID not yet confirmed by a refresh.
func (s *WishlistService) Pending(gameID models.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[gameID]
	return ok
}

func (s *WishlistService) Items() []models.WishlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *WishlistService) Loading() bool {
	return s.inFlight.Load() > 0
}

// Clear drops local state and invalidates refreshes already in flight.
func (s *WishlistService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.entries = nil
	s.members = nil
	s.pending = nil
}

// OnSessionChange is subscribed to the session gate. Any transition clears
// the wishlist; signing in also starts a background refresh.
func (s *WishlistService) OnSessionChange(authenticated bool) {
	s.Clear()
	if !authenticated {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.Refresh(context.Background())
	}()
}

// Wait blocks until background refreshes started by OnSessionChange finish.
func (s *WishlistService) Wait() {
	s.bg.Wait()
}

func (s *WishlistService) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

func (s *WishlistService) commit(gen uint64, entries []models.WishlistEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}

	members := make(map[models.ID]bool, len(entries))
	for _, e := range entries {
		members[e.GameID] = true
	}
	s.entries = entries
	s.members = members
	for id, flipped := range s.pending {
		if flipped < gen {
			delete(s.pending, id)
		}
	}
	return true
}

func (s *WishlistService) flip(gameID models.ID, member bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++

	if s.members == nil {
		s.members = make(map[models.ID]bool)
	}
	if s.pending == nil {
		s.pending = make(map[models.ID]uint64)
	}
	s.pending[gameID] = s.gen

	if member {
		s.members[gameID] = true
		s.entries = append(s.entries, models.WishlistEntry{GameID: gameID})
		return
	}
	delete(s.members, gameID)
	kept := make([]models.WishlistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.GameID != gameID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

func (s *WishlistService) track() func() {
	s.inFlight.Add(1)
	return func() { s.inFlight.Add(-1) }
}

func (s *WishlistService) normalizer() normalize.Normalizer {
	if len(s.Normalizer.Fields) == 0 {
		return normalize.New(normalize.WishlistFields...)
	}
	return s.Normalizer
}
