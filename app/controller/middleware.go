package controller

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-auctions/app/service"
)

// HeaderUsername carries the caller identity verified by the gateway.
const HeaderUsername = "X-Username"

// Username copies the gateway supplied username into the request context.
// Requests without one continue anonymously.
func Username() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if username := strings.TrimSpace(c.Request().Header.Get(HeaderUsername)); username != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(service.WithUsername(req.Context(), username)))
			}
			return next(c)
		}
	}
}
