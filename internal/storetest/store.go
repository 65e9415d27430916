// Package storetest runs an in-memory stand-in for the remote store over
// real HTTP, with call counters and failure injection for tests.
package storetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	OpGetGames       = "get_games"
	OpGetWishlist    = "get_wishlist"
	OpToggleWishlist = "toggle_wishlist"
	OpGetCart        = "get_cart"
	OpGetCartCount   = "get_cart_count"
	OpAddToCart      = "add_to_cart"
	OpUpdateCart     = "update_cart"
	OpRemoveFromCart = "remove_from_cart"
)

type Line struct {
	ID       models.ID
	GameID   models.ID
	Quantity int
}

type Store struct {
	srv *httptest.Server

	mu         sync.Mutex
	token      string
	games      []models.Game
	wishlist   []models.ID
	lines      []Line
	nextLineID models.ID
	calls      map[string]int
	fail       map[string]int
	raw        map[string]string
	before     map[string]func()
}

func New(t testing.TB, games ...models.Game) *Store {
	t.Helper()

	s := &Store{
		games:      games,
		nextLineID: 100,
		calls:      map[string]int{},
		fail:       map[string]int{},
		raw:        map[string]string{},
		before:     map[string]func(){},
	}

	e := echo.New()
	e.HideBanner = true
	e.GET("/api/games", s.handle(OpGetGames, s.getGames))
	e.GET("/api/wishlist", s.handle(OpGetWishlist, s.getWishlist))
	e.POST("/api/wishlist/toggle", s.handle(OpToggleWishlist, s.toggleWishlist))
	e.GET("/api/cart", s.handle(OpGetCart, s.getCart))
	e.GET("/api/cart/count", s.handle(OpGetCartCount, s.getCartCount))
	e.POST("/api/cart/add", s.handle(OpAddToCart, s.addToCart))
	e.PUT("/api/cart/update", s.handle(OpUpdateCart, s.updateCart))
	e.DELETE("/api/cart/remove", s.handle(OpRemoveFromCart, s.removeFromCart))

	s.srv = httptest.NewServer(e)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Store) URL() string { return s.srv.URL }

// SetToken makes token the only bearer token accepted.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Fail makes op answer with status until cleared with status 0.
func (s *Store) Fail(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, op)
		return
	}
	s.fail[op] = status
}

// RespondRaw replaces the 200 body of op with body.
func (s *Store) RespondRaw(op, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[op] = body
}

// Before runs fn ahead of every op request, outside the store lock.
func (s *Store) Before(op string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before[op] = fn
}

func (s *Store) SetGames(games ...models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = games
}

func (s *Store) SetWishlist(ids ...models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlist = append([]models.ID(nil), ids...)
}

func (s *Store) WishlistIDs() []models.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ID(nil), s.wishlist...)
}

func (s *Store) AddLine(gameID models.ID, quantity int) models.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLineID++
	s.lines = append(s.lines, Line{ID: s.nextLineID, GameID: gameID, Quantity: quantity})
	return s.nextLineID
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

func (s *Store) handle(op string, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.calls[op]++
		before := s.before[op]
		status := s.fail[op]
		raw, hasRaw := s.raw[op]
		token := s.token
		s.mu.Unlock()

		if before != nil {
			before()
		}
		if token != "" && c.Request().Header.Get("Authorization") != "Bearer "+token {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
		}
		if status != 0 {
			return c.JSON(status, echo.Map{"success": false, "message": "injected failure"})
		}
		if hasRaw {
			return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(raw))
		}
		return h(c)
	}
}

type gameRequest struct {
	GameID   models.ID `json:"gameId"`
	Quantity int       `json:"quantity"`
}

// bindGame writes a 400 itself and reports false when the body is unusable.
func bindGame(c echo.Context) (gameRequest, bool) {
	var req gameRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid body"})
		return req, false
	}
	if req.GameID == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "gameId is required"})
		return req, false
	}
	return req, true
}

func (s *Store) getGames(c echo.Context) error {
	s.mu.Lock()
	games := append([]models.Game(nil), s.games...)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, games)
}

func (s *Store) getWishlist(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]echo.Map, 0, len(s.wishlist))
	for i, id := range s.wishlist {
		item := echo.Map{"id": i + 1}
		if ref, ok := s.refLocked(id); ok {
			item["game"] = ref
		} else {
			item["gameId"] = id
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "items": items, "count": len(items)})
}

func (s *Store) toggleWishlist(c echo.Context) error {
	req, ok := bindGame(c)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	in := false
	if i := slices.Index(s.wishlist, req.GameID); i >= 0 {
		s.wishlist = slices.Delete(s.wishlist, i, i+1)
	} else {
		s.wishlist = append(s.wishlist, req.GameID)
		in = true
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "isInWishlist": in, "wishlistCount": len(s.wishlist)})
}

func (s *Store) getCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]echo.Map, 0, len(s.lines))
	for _, l := range s.lines {
		item := echo.Map{"id": l.ID, "quantity": l.Quantity}
		if ref, ok := s.refLocked(l.GameID); ok {
			item["game"] = ref
		} else {
			item["gameId"] = l.GameID
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Store) getCartCount(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (s *Store) addToCart(c echo.Context) error {
	req, ok := bindGame(c)
	if !ok {
		return nil
	}
	if req.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "quantity must be positive"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].GameID == req.GameID {
			s.lines[i].Quantity += req.Quantity
			return c.JSON(http.StatusOK, echo.Map{"success": true})
		}
	}
	s.nextLineID++
	s.lines = append(s.lines, Line{ID: s.nextLineID, GameID: req.GameID, Quantity: req.Quantity})
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (s *Store) updateCart(c echo.Context) error {
	req, ok := bindGame(c)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].GameID == req.GameID {
			s.lines[i].Quantity = req.Quantity
			return c.JSON(http.StatusOK, echo.Map{"success": true})
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "Cart item not found"})
}

func (s *Store) removeFromCart(c echo.Context) error {
	req, ok := bindGame(c)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = slices.DeleteFunc(s.lines, func(l Line) bool { return l.GameID == req.GameID })
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (s *Store) refLocked(id models.ID) (models.GameRef, bool) {
	for _, g := range s.games {
		if g.ID == id {
			return models.GameRef{
				ID:            g.ID,
				Title:         g.Title,
				Genre:         g.Genre,
				Platform:      g.Platform,
				OriginalPrice: g.OriginalPrice,
				DiscountPrice: g.DiscountPrice,
				Image:         g.Image,
				Rating:        g.Rating,
			}, true
		}
	}
	return models.GameRef{}, false
}
