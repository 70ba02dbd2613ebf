package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig lists the origins, methods and headers the dashboard frontend
// may use cross-origin.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// CORS answers preflight requests and stamps allow headers on responses to
// matching origins. Non-matching origins pass through untouched.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response().Header()
			res.Add(echo.HeaderVary, echo.HeaderOrigin)

			allowed := matchOrigin(cfg.AllowOrigins, req.Header.Get(echo.HeaderOrigin))
			if allowed == "" {
				if req.Method == http.MethodOptions {
					return c.NoContent(http.StatusNoContent)
				}
				return next(c)
			}

			res.Set(echo.HeaderAccessControlAllowOrigin, allowed)
			if allowMethods != "" {
				res.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
			}
			if allowHeaders != "" {
				res.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			}

			if req.Method == http.MethodOptions {
				if cfg.MaxAge > 0 {
					res.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(cfg.MaxAge))
				}
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

// matchOrigin returns the value to echo back in Allow-Origin, or "" when the
// request origin is not allowed.
func matchOrigin(allowed []string, origin string) string {
	for _, o := range allowed {
		if o == "*" {
			if origin != "" {
				return origin
			}
			return "*"
		}
		if origin != "" && o == origin {
			return origin
		}
	}
	return ""
}
