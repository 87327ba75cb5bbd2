package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewHTTPErrorHandler renders HTML error pages for site routes and keeps
// echo's JSON errors for the API.
func NewHTTPErrorHandler(e *echo.Echo, logger *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if strings.HasPrefix(c.Request().URL.Path, "/api/") {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		code := http.StatusInternalServerError
		message := "Something went wrong."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				message = fmt.Sprint(he.Message)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Errorw("request failed", "uri", c.Request().RequestURI, "error", err)
		}

		page := "error.html"
		if code == http.StatusNotFound {
			page = "404.html"
		}
		if rerr := render(c, code, page, map[string]interface{}{"Code": code, "Message": message}); rerr != nil {
			logger.Errorf("Failed to render error page: %v", rerr)
			e.DefaultHTTPErrorHandler(err, c)
		}
	}
}
