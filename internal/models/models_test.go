package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_AcceptsNumbersAndStrings(t *testing.T) {
	t.Parallel()

	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":7,"b":"12","c":null}`), &v))
	assert.Equal(t, ID(7), v.A)
	assert.Equal(t, ID(12), v.B)
	assert.Equal(t, ID(0), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"seven"}`), &v))
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)

	_, err = ParseID("0")
	assert.Error(t, err)
	_, err = ParseID("abc")
	assert.Error(t, err)
}

func TestWishlistEntry_GameIDChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want ID
	}{
		{name: "nested game wins", raw: `{"id":1,"game":{"id":10},"gameId":20,"game_id":30}`, want: 10},
		{name: "flat gameId", raw: `{"id":1,"gameId":20,"game_id":30}`, want: 20},
		{name: "snake case", raw: `{"id":1,"game_id":30}`, want: 30},
		{name: "nested without id falls through", raw: `{"game":{"title":"x"},"gameId":"21"}`, want: 21},
		{name: "nothing", raw: `{"id":1}`, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var e WishlistEntry
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			assert.Equal(t, tt.want, e.GameID)
		})
	}
}

func TestCartLine_NestedAndFlat(t *testing.T) {
	t.Parallel()

	var nested CartLine
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"quantity":2,"game":{"id":9,"title":"Hades","price":24.99}}`), &nested))
	assert.Equal(t, ID(3), nested.LineID)
	assert.Equal(t, ID(9), nested.GameID)
	assert.Equal(t, "Hades", nested.Game.Title)
	assert.True(t, decimal.RequireFromString("24.99").Equal(nested.Game.OriginalPrice))
	assert.Equal(t, 2, nested.Quantity)

	var flat CartLine
	require.NoError(t, json.Unmarshal([]byte(`{"id":4,"gameId":"11","quantity":1,"title":"Celeste","originalPrice":"19.99","discountPrice":9.99}`), &flat))
	assert.Equal(t, ID(4), flat.LineID)
	assert.Equal(t, ID(11), flat.GameID)
	assert.Equal(t, ID(11), flat.Game.ID)
	assert.Equal(t, "Celeste", flat.Game.Title)
	require.True(t, flat.Game.DiscountPrice.Valid)
	assert.True(t, decimal.RequireFromString("9.99").Equal(flat.Game.DiscountPrice.Decimal))

	var orphan CartLine
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"quantity":1}`), &orphan))
	assert.Equal(t, ID(0), orphan.GameID)
}

func TestGame_EffectivePriceAndRating(t *testing.T) {
	t.Parallel()

	var g Game
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"A","originalPrice":10,"discountPrice":8,"discountPercentage":20}`), &g))
	assert.True(t, decimal.NewFromInt(8).Equal(g.EffectivePrice()))
	assert.Equal(t, 0.0, g.RatingOrZero())

	var plain Game
	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"title":"B","originalPrice":0,"badge":"FREE","rating":4.7}`), &plain))
	assert.True(t, plain.EffectivePrice().IsZero())
	assert.Equal(t, 4.7, plain.RatingOrZero())
	assert.Equal(t, BadgeFree, plain.Badge)
	assert.True(t, plain.Badge.Valid())
	assert.False(t, plain.PriceMissing)
	assert.False(t, Badge("LEGENDARY").Valid())
}

func TestGame_PriceAndBadgeNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantPrice   string
		wantMissing bool
		wantBadge   Badge
	}{
		{name: "original price", raw: `{"id":1,"originalPrice":"12.50","price":3}`, wantPrice: "12.5"},
		{name: "explicit zero wins over price", raw: `{"id":1,"originalPrice":0,"price":3}`, wantPrice: "0"},
		{name: "price fallback", raw: `{"id":1,"price":7}`, wantPrice: "7"},
		{name: "no price at all", raw: `{"id":1,"title":"A"}`, wantPrice: "0", wantMissing: true},
		{name: "null price", raw: `{"id":1,"originalPrice":null}`, wantPrice: "0", wantMissing: true},
		{name: "badge case folded", raw: `{"id":1,"originalPrice":1,"badge":" early access "}`, wantPrice: "1", wantBadge: BadgeEarlyAccess},
		{name: "unknown badge dropped", raw: `{"id":1,"originalPrice":1,"badge":"LEGENDARY"}`, wantPrice: "1", wantBadge: BadgeNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var g Game
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &g))
			assert.True(t, decimal.RequireFromString(tt.wantPrice).Equal(g.OriginalPrice), g.OriginalPrice.String())
			assert.Equal(t, tt.wantMissing, g.PriceMissing)
			assert.Equal(t, tt.wantBadge, g.Badge)
		})
	}
}
