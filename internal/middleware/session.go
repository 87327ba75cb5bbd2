package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	SessionName = "warbler_session"
	CurrUserKey = "curr_user"

	storeContextKey = "sessionStore"
	userContextKey  = "currentUser"
)

// Flash categories, used as CSS classes by the templates
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

var flashCategories = []string{FlashSuccess, FlashDanger, FlashInfo}

// FlashMessage is a one-shot message shown on the next rendered page
type FlashMessage struct {
	Category string
	Message  string
}

// NewCookieStore returns the session store used for the login cookie and flashes
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Sessions makes store available to the session helpers below
func Sessions(store sessions.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(storeContextKey, store)
			return next(c)
		}
	}
}

func session(c echo.Context) (*sessions.Session, error) {
	store, ok := c.Get(storeContextKey).(sessions.Store)
	if !ok {
		return nil, errors.New("session store missing from context")
	}
	// a cookie that no longer decodes still yields a usable fresh session
	sess, err := store.Get(c.Request(), SessionName)
	if sess == nil {
		return nil, err
	}
	return sess, nil
}

// LoadUser puts the logged in user, if any, into the request context
func LoadUser(users repositories.UserRepository, logger *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := session(c)
			if err != nil {
				return err
			}

			id, ok := sess.Values[CurrUserKey].(uint)
			if !ok {
				return next(c)
			}

			user, err := users.GetUserByID(c.Request().Context(), id)
			switch {
			case err == nil:
				c.Set(userContextKey, user)
			case errors.Is(err, repositories.ErrNotFound):
				// account deleted elsewhere
				delete(sess.Values, CurrUserKey)
				if err := save(c, sess); err != nil {
					logger.Errorf("Failed to save session: %v", err)
				}
			default:
				return err
			}
			return next(c)
		}
	}
}

// save writes sess, replacing any session cookie already set on this response
func save(c echo.Context, sess *sessions.Session) error {
	header := c.Response().Header()
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, SessionName+"=") {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
	return sess.Save(c.Request(), c.Response())
}

// CurrentUser returns the logged in user or nil
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// LoginUser stores user's id in the session
func LoginUser(c echo.Context, user *models.User) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	sess.Values[CurrUserKey] = user.ID
	c.Set(userContextKey, user)
	return save(c, sess)
}

// LogoutUser removes the user from the session. Pending flashes survive.
func LogoutUser(c echo.Context) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	delete(sess.Values, CurrUserKey)
	c.Set(userContextKey, nil)
	return save(c, sess)
}

// Flash queues msg for the next rendered page
func Flash(c echo.Context, category, msg string) error {
	sess, err := session(c)
	if err != nil {
		return err
	}
	sess.AddFlash(msg, "_flash_"+category)
	return save(c, sess)
}

// PopFlashes returns and clears the queued flashes
func PopFlashes(c echo.Context) []FlashMessage {
	sess, err := session(c)
	if err != nil {
		return nil
	}

	var out []FlashMessage
	for _, category := range flashCategories {
		for _, f := range sess.Flashes("_flash_" + category) {
			if msg, ok := f.(string); ok {
				out = append(out, FlashMessage{Category: category, Message: msg})
			}
		}
	}
	if len(out) > 0 && !c.Response().Committed {
		_ = save(c, sess)
	}
	return out
}

// RequireLogin sends anonymous visitors back to the home page
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			if err := Flash(c, FlashDanger, "Access unauthorized."); err != nil {
				return err
			}
			return c.Redirect(http.StatusFound, "/")
		}
		return next(c)
	}
}

// RedirectAnonymousOnly sends logged in users away from the signup and login pages
func RedirectAnonymousOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) != nil {
			return c.Redirect(http.StatusFound, "/")
		}
		return next(c)
	}
}

// SafeRedirect returns target when it points at this site, fallback otherwise
func SafeRedirect(c echo.Context, target, fallback string) string {
	if target == "" || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil {
		return fallback
	}

	if u.Scheme == "" && u.Host == "" {
		if !strings.HasPrefix(u.Path, "/") {
			return fallback
		}
		return u.RequestURI()
	}

	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == c.Request().Host {
		return u.RequestURI()
	}
	return fallback
}
