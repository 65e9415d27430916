package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

type WishlistHTTP struct {
	Svc *service.WishlistService
}

func (h *WishlistHTTP) GetWishlist(c echo.Context) error {
	return c.JSON(http.StatusOK, WishlistResponse{Items: h.Svc.Items(), Loading: h.Svc.Loading()})
}

func (h *WishlistHTTP) Membership(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "wishlist.membership")

	gameID, err := models.ParseID(c.Param("gameId"))
	if err != nil {
		l.Warn("wishlist_membership_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, models.Fail("invalid game id"))
	}
	return c.JSON(http.StatusOK, MembershipResponse{
		GameID:  gameID,
		Member:  h.Svc.IsMember(gameID),
		Pending: h.Svc.Pending(gameID),
	})
}

func (h *WishlistHTTP) Toggle(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "wishlist.toggle")

	var req ToggleWishlistRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("wishlist_toggle_error", "status", 400, "error", err)
		return badRequest(c, err)
	}

	return c.JSON(http.StatusOK, h.Svc.Toggle(c.Request().Context(), req.GameID))
}

func (h *WishlistHTTP) Remove(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "wishlist.remove")

	gameID, err := models.ParseID(c.Param("gameId"))
	if err != nil {
		l.Warn("wishlist_remove_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, models.Fail("invalid game id"))
	}
	return c.JSON(http.StatusOK, h.Svc.Remove(c.Request().Context(), gameID))
}
