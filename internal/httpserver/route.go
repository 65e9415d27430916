package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/storefront/internal/metrics"
)

type Deps struct {
	Session  *SessionHTTP
	Catalog  *CatalogHTTP
	Wishlist *WishlistHTTP
	Cart     *CartHTTP

	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// Ready reports whether the catalog has been loaded at least once.
	Ready func() bool
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()
	if d.Log != nil {
		e.Use(RequestLogger(d.Log))
	}
	e.Use(middleware.Recover())
	e.Use(d.Metrics.Middleware())

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil && !d.Ready() {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Gatherer)))
	}

	api := e.Group("/api")

	api.GET("/session", d.Session.Get)
	api.POST("/session", d.Session.SignIn)
	api.DELETE("/session", d.Session.SignOut)

	api.GET("/catalog", d.Catalog.List)
	api.GET("/catalog/sections", d.Catalog.Sections)
	api.POST("/catalog/refresh", d.Catalog.Refresh)

	api.GET("/wishlist", d.Wishlist.GetWishlist)
	api.GET("/wishlist/:gameId", d.Wishlist.Membership)
	api.POST("/wishlist/toggle", d.Wishlist.Toggle)
	api.DELETE("/wishlist/:gameId", d.Wishlist.Remove)

	api.GET("/cart", d.Cart.GetCart)
	api.POST("/cart", d.Cart.AddToCart)
	api.PUT("/cart/:lineId", d.Cart.UpdateQuantity)
	api.DELETE("/cart/:lineId", d.Cart.RemoveFromCart)
}
