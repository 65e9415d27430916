package service

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/storefront/pkg/storeclient"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotMember       = errors.New("game is not in wishlist")
	ErrLineNotFound    = errors.New("cart item not found")
	ErrGameUnresolved  = errors.New("game id not found in cart item")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

const (
	msgWishlistLogin = "Please log in to use wishlist"
	msgCartLogin     = "Please log in to add items to cart"
	msgStoreDown     = "Could not reach the store, please try again"
)

// userMessage is the text a visitor sees for err. login is used for
// ErrUnauthenticated and for tokens the store rejects, since the wording
// differs per feature.
func userMessage(err error, login string) string {
	switch {
	case errors.Is(err, ErrUnauthenticated), storeclient.IsStatus(err, http.StatusUnauthorized):
		return login
	case errors.Is(err, ErrNotMember):
		return "Game is not in wishlist"
	case errors.Is(err, ErrLineNotFound):
		return "Cart item not found"
	case errors.Is(err, ErrGameUnresolved):
		return "Game ID not found in cart item"
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be at least 1"
	}

	var apiErr *storeclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgStoreDown
}
