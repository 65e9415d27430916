package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CatalogHTTP struct {
	Svc      *catalog.CatalogService
	Wishlist *service.WishlistService
	Cart     *service.CartService
}

// List serves the filtered and sorted catalog view. The whole view is
// returned unless page or size is given.
func (h *CatalogHTTP) List(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "catalog.list")

	filter, err := catalog.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		l.Warn("catalog_list_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, models.Fail(err.Error()))
	}
	sort, err := catalog.ParseSortKey(c.QueryParam("sort"))
	if err != nil {
		l.Warn("catalog_list_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, models.Fail(err.Error()))
	}

	games := h.Svc.Project(catalog.ViewParameters{
		Search: c.QueryParam("search"),
		Filter: filter,
		Sort:   sort,
	})

	resp := CatalogResponse{Stale: h.Svc.Stale()}
	if c.QueryParam("page") != "" || c.QueryParam("size") != "" {
		page := util.ParseIntDefault(c.QueryParam("page"), 1)
		size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
		var meta util.PageMeta
		games, meta = util.Paginate(games, page, size)
		resp.Meta = &meta
	}
	resp.Games = h.decorate(games)
	return c.JSON(http.StatusOK, resp)
}

func (h *CatalogHTTP) Sections(c echo.Context) error {
	s := h.Svc.Sections()
	return c.JSON(http.StatusOK, SectionsResponse{
		Featured: h.decorate(s.Featured),
		OnSale:   h.decorate(s.OnSale),
		Free:     h.decorate(s.Free),
		Popular:  h.decorate(s.Popular),
	})
}

func (h *CatalogHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.refresh")

	if err := h.Svc.Refresh(ctx); err != nil {
		l.Error("catalog_refresh_error", "error", err)
		return c.JSON(http.StatusOK, models.Fail("Could not refresh the catalog, showing the last saved copy"))
	}
	return c.JSON(http.StatusOK, models.Ok("Catalog refreshed"))
}

func (h *CatalogHTTP) decorate(games []models.Game) []catalog.GameView {
	var wishlist catalog.Membership
	if h.Wishlist != nil {
		wishlist = h.Wishlist
	}
	var cart catalog.CartMembership
	if h.Cart != nil {
		cart = h.Cart
	}
	return catalog.Decorate(games, wishlist, cart)
}
