package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

type SessionHTTP struct {
	Gate *session.Gate
}

func (h *SessionHTTP) SignIn(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "session.sign_in")

	var req SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("sign_in_error", "status", 400, "error", err)
		return badRequest(c, err)
	}

	if err := h.Gate.SignIn(req.Token); err != nil {
		l.Warn("sign_in_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token"})
	}

	l.Info("session started")
	return c.JSON(http.StatusOK, h.state())
}

func (h *SessionHTTP) SignOut(c echo.Context) error {
	h.Gate.SignOut()
	logging.FromContext(c.Request().Context()).With("handler", "session.sign_out").Info("session ended")
	return c.JSON(http.StatusOK, h.state())
}

func (h *SessionHTTP) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state())
}

func (h *SessionHTTP) state() SessionResponse {
	return SessionResponse{Authenticated: h.Gate.IsAuthenticated(), User: h.Gate.CurrentUser()}
}
