package httpserver

import (
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/util"
)

type SignInRequest struct {
	Token string `json:"token" validate:"required"`
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
}

type CatalogResponse struct {
	Games []catalog.GameView `json:"games"`
	Stale bool               `json:"stale"`
	Meta  *util.PageMeta     `json:"meta,omitempty"`
}

type SectionsResponse struct {
	Featured []catalog.GameView `json:"featured"`
	OnSale   []catalog.GameView `json:"onSale"`
	Free     []catalog.GameView `json:"free"`
	Popular  []catalog.GameView `json:"popular"`
}

type WishlistResponse struct {
	Items   []models.WishlistEntry `json:"items"`
	Loading bool                   `json:"loading"`
}

type MembershipResponse struct {
	GameID  models.ID `json:"gameId"`
	Member  bool      `json:"member"`
	Pending bool      `json:"pending"`
}

type ToggleWishlistRequest struct {
	GameID models.ID `json:"gameId" validate:"required,gt=0"`
}

type CartResponse struct {
	Items   []models.CartLine `json:"items"`
	Count   int               `json:"count"`
	Loading bool              `json:"loading"`
}

type AddToCartRequest struct {
	GameID   models.ID `json:"gameId" validate:"required,gt=0"`
	Quantity *int      `json:"quantity"`
}

type UpdateCartRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
