package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	applogger "StockPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover converts a handler panic into a 500 response instead of tearing
// down the connection. The stack goes through the structured logger, falling
// back to the stdlib logger when none is configured.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				stack := debug.Stack()
				if l != nil {
					l.Error("handler panic",
						applogger.String("method", c.Request().Method),
						applogger.String("uri", c.Request().RequestURI),
						applogger.String("panic", fmt.Sprint(r)),
						applogger.String("stack", string(stack)))
				} else {
					log.Printf("panic recovered: %v\n%s", r, stack)
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": "Internal Server Error",
				})
			}()
			return next(c)
		}
	}
}
