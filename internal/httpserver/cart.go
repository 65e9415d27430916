package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	return c.JSON(http.StatusOK, CartResponse{
		Items:   h.Svc.Items(),
		Count:   h.Svc.Count(),
		Loading: h.Svc.Loading(),
	})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.add")

	var req AddToCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return badRequest(c, err)
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	return c.JSON(http.StatusOK, h.Svc.Add(c.Request().Context(), req.GameID, quantity))
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.update")

	lineID, err := models.ParseID(c.Param("lineId"))
	if err != nil {
		l.Warn("update_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, models.Fail("invalid line id"))
	}

	var req UpdateCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("update_cart_error", "status", 400, "error", err)
		return badRequest(c, err)
	}

	return c.JSON(http.StatusOK, h.Svc.UpdateQuantity(c.Request().Context(), lineID, *req.Quantity))
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.remove")

	lineID, err := models.ParseID(c.Param("lineId"))
	if err != nil {
		l.Warn("remove_from_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, models.Fail("invalid line id"))
	}
	return c.JSON(http.StatusOK, h.Svc.Remove(c.Request().Context(), lineID))
}
