package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/storetest"
	"github.com/Skotchmaster/storefront/pkg/storeclient"
)

func TestWishlist_RefreshBuildsEntriesAndMembership(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.SetWishlist(2, 9)
	w := newWishlist(t, newClient(t, store), signedIn())

	w.Refresh(context.Background())

	items := w.Items()
	require.Len(t, items, 2)
	assert.Equal(t, models.ID(2), items[0].GameID)
	require.NotNil(t, items[0].Game)
	assert.Equal(t, "Celeste", items[0].Game.Title)
	// unknown to the catalog, sent flat
	assert.Equal(t, models.ID(9), items[1].GameID)
	assert.Nil(t, items[1].Game)

	assert.True(t, w.IsMember(2))
	assert.True(t, w.IsMember(9))
	assert.False(t, w.IsMember(1))
	assert.False(t, w.Loading())
}

func TestWishlist_ToggleTwiceRestoresMembership(t *testing.T) {
	t.Parallel()

	rec := &recordedEvents{}
	store := storetest.New(t, testGames()...)
	w := newWishlist(t, newClient(t, store), signedIn())
	w.Events = events.NewEmitter(rec, "activity", logging.Discard())
	ctx := context.Background()
	w.Refresh(ctx)
	require.False(t, w.IsMember(1))

	res := w.Toggle(ctx, 1)
	require.True(t, res.Success)
	assert.True(t, res.Added)
	assert.False(t, res.Removed)
	assert.Equal(t, "Added to wishlist!", res.Message)
	assert.True(t, w.IsMember(1))
	assert.False(t, w.Pending(1))

	res = w.Toggle(ctx, 1)
	require.True(t, res.Success)
	assert.True(t, res.Removed)
	assert.Equal(t, "Removed from wishlist!", res.Message)
	assert.False(t, w.IsMember(1))
	assert.Empty(t, store.WishlistIDs())

	assert.Equal(t, []string{events.WishlistToggled, events.WishlistToggled}, rec.types())
}

func TestWishlist_UnauthenticatedToggleMakesNoCall(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.SetWishlist(5)
	sess := signedIn()
	w := newWishlist(t, newClient(t, store), sess)
	w.Refresh(context.Background())
	require.True(t, w.IsMember(5))

	sess.authed.Store(false)
	before := store.TotalCalls()

	res := w.Toggle(context.Background(), 5)
	assert.False(t, res.Success)
	assert.Equal(t, "Please log in to use wishlist", res.Message)
	assert.True(t, w.IsMember(5))
	assert.Equal(t, before, store.TotalCalls())
}

func TestWishlist_RemoveNonMemberMakesNoCall(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.SetWishlist(1)
	w := newWishlist(t, newClient(t, store), signedIn())
	w.Refresh(context.Background())
	before := store.TotalCalls()

	res := w.Remove(context.Background(), 2)
	assert.False(t, res.Success)
	assert.Equal(t, "Game is not in wishlist", res.Message)
	assert.Equal(t, before, store.TotalCalls())
	assert.Zero(t, store.Calls(storetest.OpToggleWishlist))
}

func TestWishlist_RemoveMember(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.SetWishlist(1, 2)
	w := newWishlist(t, newClient(t, store), signedIn())
	w.Refresh(context.Background())

	res := w.Remove(context.Background(), 1)
	require.True(t, res.Success)
	assert.True(t, res.Removed)
	assert.False(t, w.IsMember(1))
	require.Len(t, w.Items(), 1)
	assert.Equal(t, models.ID(2), w.Items()[0].GameID)
	assert.Equal(t, []models.ID{2}, store.WishlistIDs())
}

func TestWishlist_RemoteToggleFailure(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.Fail(storetest.OpToggleWishlist, http.StatusBadRequest)
	w := newWishlist(t, newClient(t, store), signedIn())
	w.Refresh(context.Background())

	res := w.Toggle(context.Background(), 1)
	assert.False(t, res.Success)
	assert.Equal(t, "injected failure", res.Message)
	assert.False(t, w.IsMember(1))
	assert.False(t, w.Pending(1))
}

func TestWishlist_DegradesToEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(s *storetest.Store)
	}{
		{name: "plain string body", setup: func(s *storetest.Store) { s.RespondRaw(storetest.OpGetWishlist, `"not a list"`) }},
		{name: "envelope without items", setup: func(s *storetest.Store) { s.RespondRaw(storetest.OpGetWishlist, `{"success":true}`) }},
		{name: "server error", setup: func(s *storetest.Store) { s.Fail(storetest.OpGetWishlist, http.StatusInternalServerError) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := storetest.New(t, testGames()...)
			store.SetWishlist(1, 2)
			w := newWishlist(t, newClient(t, store), signedIn())
			w.Refresh(context.Background())
			require.Len(t, w.Items(), 2)

			tt.setup(store)
			w.Refresh(context.Background())
			assert.Empty(t, w.Items())
			assert.False(t, w.IsMember(1))
		})
	}
}

func TestWishlist_RefreshWhenSignedOutClears(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.SetWishlist(1)
	sess := signedIn()
	w := newWishlist(t, newClient(t, store), sess)
	w.Refresh(context.Background())
	require.True(t, w.IsMember(1))

	sess.authed.Store(false)
	before := store.TotalCalls()
	w.Refresh(context.Background())
	assert.False(t, w.IsMember(1))
	assert.Empty(t, w.Items())
	assert.Equal(t, before, store.TotalCalls())
}

func TestWishlist_CustomEnvelopeField(t *testing.T) {
	t.Parallel()

	store := &scriptedWishlist{}
	store.push(respond(`{"wishlist":[{"game_id":"7"}]}`))
	w := newWishlist(t, store, signedIn())
	w.Normalizer.Fields = []string{"wishlist"}

	w.Refresh(context.Background())
	assert.True(t, w.IsMember(7))
}

func TestWishlist_StaleRefreshIsDiscarded(t *testing.T) {
	t.Parallel()

	started, release := make(chan struct{}), make(chan struct{})
	store := &scriptedWishlist{}
	store.push(
		blocking(started, release, `[{"gameId":1}]`),
		respond(`[{"gameId":2}]`),
	)
	m := metrics.New(prometheus.NewRegistry())
	w := newWishlist(t, store, signedIn())
	w.Metrics = m

	slow := make(chan struct{})
	go func() {
		defer close(slow)
		w.Refresh(context.Background())
	}()
	<-started

	w.Refresh(context.Background())
	require.True(t, w.IsMember(2))
	assert.True(t, w.Loading())

	close(release)
	<-slow

	assert.True(t, w.IsMember(2))
	assert.False(t, w.IsMember(1))
	assert.False(t, w.Loading())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleRefreshes.WithLabelValues("wishlist")))
}

func TestWishlist_PendingUntilRefreshSettles(t *testing.T) {
	t.Parallel()

	started, release := make(chan struct{}), make(chan struct{})
	store := &scriptedWishlist{}
	store.push(blocking(started, release, `[{"gameId":3}]`))
	w := newWishlist(t, store, signedIn())

	done := make(chan bool)
	go func() { done <- w.Toggle(context.Background(), 3).Added }()
	<-started

	assert.True(t, w.IsMember(3))
	assert.True(t, w.Pending(3))
	assert.True(t, w.Loading())

	close(release)
	assert.True(t, <-done)
	assert.False(t, w.Pending(3))
	assert.True(t, w.IsMember(3))
	assert.EqualValues(t, 1, store.toggles.Load())
}

func TestWishlist_OnSessionChange(t *testing.T) {
	t.Parallel()

	store := storetest.New(t, testGames()...)
	store.SetWishlist(5)
	sess := signedIn()
	w := newWishlist(t, newClient(t, store), sess)

	w.OnSessionChange(true)
	w.Wait()
	assert.True(t, w.IsMember(5))

	sess.authed.Store(false)
	w.OnSessionChange(false)
	assert.False(t, w.IsMember(5))
	assert.Empty(t, w.Items())
}

func TestWishlist_SessionChangeDiscardsInFlightRefresh(t *testing.T) {
	t.Parallel()

	started, release := make(chan struct{}), make(chan struct{})
	store := &scriptedWishlist{}
	store.push(blocking(started, release, `[{"gameId":1}]`))
	w := newWishlist(t, store, signedIn())

	slow := make(chan struct{})
	go func() {
		defer close(slow)
		w.Refresh(context.Background())
	}()
	<-started

	w.OnSessionChange(false)
	close(release)

	select {
	case <-slow:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not finish")
	}
	assert.False(t, w.IsMember(1))
}

func TestWishlist_FailedToggleKeepsInFlightRefresh(t *testing.T) {
	t.Parallel()

	started, release := make(chan struct{}), make(chan struct{})
	store := &scriptedWishlist{toggleErr: &storeclient.APIError{Status: http.StatusInternalServerError, Message: "boom"}}
	store.push(blocking(started, release, `[{"gameId":1},{"gameId":2}]`))
	w := newWishlist(t, store, signedIn())

	w.OnSessionChange(true)
	<-started

	res := w.Toggle(context.Background(), 5)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Message)
	assert.False(t, w.Pending(5))

	close(release)
	w.Wait()

	assert.True(t, w.IsMember(1))
	assert.True(t, w.IsMember(2))
	assert.False(t, w.IsMember(5))
	assert.EqualValues(t, 1, store.toggles.Load())
}
