package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ID is a remote identifier. The store sends ids either as JSON numbers or as
// numeric strings depending on the endpoint, so both are accepted.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(n)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return ID(n), nil
}

type Badge string

const (
	BadgeNone        Badge = ""
	BadgeNew         Badge = "NEW"
	BadgeSale        Badge = "SALE"
	BadgeFree        Badge = "FREE"
	BadgeEarlyAccess Badge = "EARLY ACCESS"
	BadgeGoodOldGame Badge = "GOOD OLD GAME"
)

func (b Badge) Valid() bool {
	switch b {
	case BadgeNone, BadgeNew, BadgeSale, BadgeFree, BadgeEarlyAccess, BadgeGoodOldGame:
		return true
	}
	return false
}

// Game is a catalog entry. It is owned by the remote catalog and read-only here.
type Game struct {
	ID                 ID                  `json:"id"`
	Title              string              `json:"title"`
	Genre              string              `json:"genre"`
	Platform           string              `json:"platform"`
	OriginalPrice      decimal.Decimal     `json:"originalPrice"`
	DiscountPrice      decimal.NullDecimal `json:"discountPrice"`
	DiscountPercentage float64             `json:"discountPercentage"`
	Rating             *float64            `json:"rating,omitempty"`
	Image              string              `json:"image,omitempty"`
	Badge              Badge               `json:"badge,omitempty"`
	Featured           bool                `json:"featured"`
	// PriceMissing is set when the payload carried neither originalPrice nor
	// price; OriginalPrice is then zero but the game is not known to be free.
	PriceMissing bool `json:"-"`
}

// UnmarshalJSON falls back to "price" when "originalPrice" is absent and
// drops badges the storefront does not know how to display.
func (g *Game) UnmarshalJSON(b []byte) error {
	type alias Game
	var w struct {
		alias
		OriginalPrice decimal.NullDecimal `json:"originalPrice"`
		Price         decimal.NullDecimal `json:"price"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*g = Game(w.alias)

	switch {
	case w.OriginalPrice.Valid:
		g.OriginalPrice = w.OriginalPrice.Decimal
	case w.Price.Valid:
		g.OriginalPrice = w.Price.Decimal
	default:
		g.PriceMissing = true
	}

	g.Badge = Badge(strings.ToUpper(strings.TrimSpace(string(g.Badge))))
	if !g.Badge.Valid() {
		g.Badge = BadgeNone
	}
	return nil
}

// EffectivePrice is the discount price when one is set, otherwise the original price.
func (g Game) EffectivePrice() decimal.Decimal {
	if g.DiscountPrice.Valid {
		return g.DiscountPrice.Decimal
	}
	return g.OriginalPrice
}

// RatingOrZero treats an absent rating as 0.
func (g Game) RatingOrZero() float64 {
	if g.Rating == nil {
		return 0
	}
	return *g.Rating
}

// GameRef is the snapshot of display fields a cart line or wishlist entry
// carries at fetch time. It does not follow live catalog changes.
type GameRef struct {
	ID            ID                  `json:"id"`
	Title         string              `json:"title"`
	Genre         string              `json:"genre,omitempty"`
	Platform      string              `json:"platform,omitempty"`
	OriginalPrice decimal.Decimal     `json:"originalPrice"`
	DiscountPrice decimal.NullDecimal `json:"discountPrice"`
	Image         string              `json:"image,omitempty"`
	Rating        *float64            `json:"rating,omitempty"`
}

func (g *GameRef) UnmarshalJSON(b []byte) error {
	type alias GameRef
	var w struct {
		alias
		Price decimal.NullDecimal `json:"price"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*g = GameRef(w.alias)
	// older store builds only send "price"
	if g.OriginalPrice.IsZero() && w.Price.Valid {
		g.OriginalPrice = w.Price.Decimal
	}
	return nil
}

// CartLine is one game in the authenticated user's cart.
type CartLine struct {
	LineID   ID      `json:"id"`
	GameID   ID      `json:"gameId"`
	Game     GameRef `json:"game"`
	Quantity int     `json:"quantity"`
}

func (l *CartLine) UnmarshalJSON(b []byte) error {
	var w struct {
		ID       ID       `json:"id"`
		Game     *GameRef `json:"game"`
		GameID   ID       `json:"gameId"`
		Quantity int      `json:"quantity"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	line := CartLine{LineID: w.ID, Quantity: w.Quantity}
	if w.Game != nil {
		line.Game = *w.Game
	} else {
		// flat payloads carry display fields next to the line id
		if err := json.Unmarshal(b, &line.Game); err != nil {
			return err
		}
		line.Game.ID = 0
	}

	switch {
	case w.Game != nil && w.Game.ID != 0:
		line.GameID = w.Game.ID
	case w.GameID != 0:
		line.GameID = w.GameID
	}
	line.Game.ID = line.GameID

	*l = line
	return nil
}

// WishlistEntry marks one game as a member of the wishlist.
type WishlistEntry struct {
	ID     ID       `json:"id,omitempty"`
	GameID ID       `json:"gameId"`
	Game   *GameRef `json:"game,omitempty"`
}

// UnmarshalJSON resolves the game id from the nested game first, then the
// flat gameId, then the flat game_id field.
func (e *WishlistEntry) UnmarshalJSON(b []byte) error {
	var w struct {
		ID        ID       `json:"id"`
		Game      *GameRef `json:"game"`
		GameID    ID       `json:"gameId"`
		GameIDAlt ID       `json:"game_id"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	entry := WishlistEntry{ID: w.ID, Game: w.Game}
	switch {
	case w.Game != nil && w.Game.ID != 0:
		entry.GameID = w.Game.ID
	case w.GameID != 0:
		entry.GameID = w.GameID
	case w.GameIDAlt != 0:
		entry.GameID = w.GameIDAlt
	}

	*e = entry
	return nil
}

// Result is what every mutating operation hands back to presentation code.
// Expected failures are reported here instead of as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Added   bool   `json:"added,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

func Fail(message string) Result {
	return Result{Success: false, Message: message}
}
