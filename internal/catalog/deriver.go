package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	featuredLimit = 3
	onSaleLimit   = 8
	freeLimit     = 6
	popularLimit  = 8

	bestsellerRating = 4.5
)

type Filter string

const (
	FilterAll        Filter = "all"
	FilterSale       Filter = "sale"
	FilterFree       Filter = "free"
	FilterNew        Filter = "new"
	FilterBestseller Filter = "bestseller"
)

type SortKey string

const (
	SortTitle     SortKey = "title"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortDiscount  SortKey = "discount"
)

// ViewParameters are the session-local search, filter and sort choices.
type ViewParameters struct {
	Search string  `json:"search"`
	Filter Filter  `json:"filter"`
	Sort   SortKey `json:"sort"`
}

func DefaultViewParameters() ViewParameters {
	return ViewParameters{Filter: FilterAll, Sort: SortTitle}
}

func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	switch f := Filter(strings.ToLower(s)); f {
	case FilterAll, FilterSale, FilterFree, FilterNew, FilterBestseller:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortTitle, nil
	}
	switch k := SortKey(strings.ToLower(s)); k {
	case SortTitle, SortPriceLow, SortPriceHigh, SortRating, SortDiscount:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

type Sections struct {
	Featured []models.Game `json:"featured"`
	OnSale   []models.Game `json:"onSale"`
	Free     []models.Game `json:"free"`
	Popular  []models.Game `json:"popular"`
}

func IsOnSale(g models.Game) bool {
	return g.DiscountPercentage > 0 || g.Badge == models.BadgeSale
}

// IsFree requires a known zero price or the FREE badge; a game whose payload
// carried no price is not free.
func IsFree(g models.Game) bool {
	return g.Badge == models.BadgeFree || (!g.PriceMissing && g.OriginalPrice.IsZero())
}

func IsNew(g models.Game) bool {
	return g.Badge == models.BadgeNew
}

func IsBestseller(g models.Game) bool {
	return g.Rating != nil && *g.Rating >= bestsellerRating
}

// Deriver computes display projections of the catalog. The zero value sorts
// titles with English collation.
type Deriver struct {
	Locale language.Tag
}

func NewDeriver(locale string) (*Deriver, error) {
	if locale == "" {
		return &Deriver{Locale: language.English}, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Deriver{Locale: tag}, nil
}

// DeriveSections partitions the catalog into the promotional buckets. Only
// the popular bucket is reordered.
func (d *Deriver) DeriveSections(games []models.Game) Sections {
	popular := filter(games, IsBestseller, -1)
	slices.SortStableFunc(popular, func(a, b models.Game) int {
		return cmp.Compare(b.RatingOrZero(), a.RatingOrZero())
	})
	if len(popular) > popularLimit {
		popular = popular[:popularLimit]
	}

	return Sections{
		Featured: filter(games, func(g models.Game) bool { return g.Featured }, featuredLimit),
		OnSale:   filter(games, IsOnSale, onSaleLimit),
		Free:     filter(games, IsFree, freeLimit),
		Popular:  popular,
	}
}

// Project filters by title search and category, then sorts by the chosen key.
// The input slice is never reordered.
func (d *Deriver) Project(games []models.Game, p ViewParameters) []models.Game {
	term := strings.ToLower(p.Search)
	match := categoryPredicate(p.Filter)

	out := filter(games, func(g models.Game) bool {
		return strings.Contains(strings.ToLower(g.Title), term) && match(g)
	}, -1)

	if less := d.comparator(p.Sort); less != nil {
		slices.SortStableFunc(out, less)
	}
	return out
}

func (d *Deriver) comparator(key SortKey) func(a, b models.Game) int {
	switch key {
	case SortTitle:
		// a Collator keeps per-call buffers, so each projection gets its own
		col := collate.New(d.locale())
		return func(a, b models.Game) int { return col.CompareString(a.Title, b.Title) }
	case SortPriceLow:
		return func(a, b models.Game) int { return a.EffectivePrice().Cmp(b.EffectivePrice()) }
	case SortPriceHigh:
		return func(a, b models.Game) int { return b.EffectivePrice().Cmp(a.EffectivePrice()) }
	case SortRating:
		return func(a, b models.Game) int { return cmp.Compare(b.RatingOrZero(), a.RatingOrZero()) }
	case SortDiscount:
		return func(a, b models.Game) int { return cmp.Compare(b.DiscountPercentage, a.DiscountPercentage) }
	}
	return nil
}

func (d *Deriver) locale() language.Tag {
	if d == nil || d.Locale == language.Und {
		return language.English
	}
	return d.Locale
}

func categoryPredicate(f Filter) func(models.Game) bool {
	switch f {
	case FilterAll, "":
		return func(models.Game) bool { return true }
	case FilterSale:
		return IsOnSale
	case FilterFree:
		return IsFree
	case FilterNew:
		return IsNew
	case FilterBestseller:
		return IsBestseller
	}
	return func(models.Game) bool { return false }
}

// filter keeps catalog order and stops after limit matches; limit < 0 means no cap.
func filter(games []models.Game, keep func(models.Game) bool, limit int) []models.Game {
	out := make([]models.Game, 0)
	for _, g := range games {
		if limit >= 0 && len(out) == limit {
			break
		}
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

// Membership answers the per-item flags without touching the network.
type Membership interface {
	IsMember(gameID models.ID) bool
}

type CartMembership interface {
	Contains(gameID models.ID) bool
}

type GameView struct {
	models.Game
	Wishlisted bool `json:"wishlisted"`
	InCart     bool `json:"inCart"`
}

// Decorate attaches wishlist and cart flags to each game for rendering.
func Decorate(games []models.Game, wishlist Membership, cart CartMembership) []GameView {
	out := make([]GameView, 0, len(games))
	for _, g := range games {
		v := GameView{Game: g}
		if wishlist != nil {
			v.Wishlisted = wishlist.IsMember(g.ID)
		}
		if cart != nil {
			v.InCart = cart.Contains(g.ID)
		}
		out = append(out, v)
	}
	return out
}
