package middleware

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/valyala/fastjson"
)

// EnforceJSON rejects requests whose body is not a JSON document.
// A blank Content-Type is treated as application/json.
func EnforceJSON(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()

		contentType := r.Header.Get(echo.HeaderContentType)
		if contentType != "" {
			mt, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Malformed Content-Type header")
			}
			if mt != echo.MIMEApplicationJSON {
				return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Content-Type header must be application/json")
			}
		} else {
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Can not read request body")
		}
		if len(body) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "No body provided")
		}
		if err := fastjson.ValidateBytes(body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed JSON")
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		return next(c)
	}
}
