package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/anonto42/warbler/internal/middleware"
	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/monitoring"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/pkg/firebase"
	"github.com/anonto42/warbler/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenVerifier checks Firebase ID tokens; *firebase.Verifier satisfies it
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*firebase.Identity, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository         repositories.UserRepository
	loginAttemptRepository repositories.LoginAttemptRepository
	firebaseAuth           TokenVerifier
	jwtSecret              string
	logger                 *zap.SugaredLogger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil.
func NewAuthHandler(
	userRepo repositories.UserRepository,
	attemptsRepo repositories.LoginAttemptRepository,
	firebaseAuth TokenVerifier,
	jwtSecret string,
	logger *zap.SugaredLogger,
) *AuthHandler {
	return &AuthHandler{
		userRepository:         userRepo,
		loginAttemptRepository: attemptsRepo,
		firebaseAuth:           firebaseAuth,
		jwtSecret:              jwtSecret,
		logger:                 logger,
	}
}

// RegisterAuthRoutes registers the session routes
func (h *AuthHandler) RegisterAuthRoutes(e *echo.Echo) {
	anonymousOnly := middleware.RedirectAnonymousOnly
	e.GET("/signup", h.Signup, anonymousOnly)
	e.POST("/signup", h.Signup, anonymousOnly)
	e.GET("/login", h.Login, anonymousOnly)
	e.POST("/login", h.Login, anonymousOnly)
	if h.firebaseAuth != nil {
		e.POST("/login/firebase", h.FirebaseLogin, anonymousOnly)
	}
	e.POST("/logout", h.Logout, middleware.RequireLogin)
}

// RegisterAPIAuthRoutes registers the token endpoint
func (h *AuthHandler) RegisterAPIAuthRoutes(g *echo.Group) {
	g.POST("/auth/token", h.Token, middleware.EnforceJSON)
}

// Signup creates an account and logs it in
func (h *AuthHandler) Signup(c echo.Context) error {
	var form models.SignupForm
	if c.Request().Method == http.MethodGet {
		return render(c, http.StatusOK, "users/signup.html", echo.Map{"Form": form})
	}

	if err := c.Bind(&form); err != nil {
		return render(c, http.StatusOK, "users/signup.html", echo.Map{"Form": form, "Errors": []string{"Invalid form submission"}})
	}
	if err := c.Validate(&form); err != nil {
		return render(c, http.StatusOK, "users/signup.html", echo.Map{"Form": form, "Errors": validators.Messages(err)})
	}

	user := &models.User{
		Username: form.Username,
		Email:    form.Email,
		ImageURL: form.ImageURL,
	}
	if err := user.SetPassword(form.Password); err != nil {
		return err
	}

	err := h.userRepository.CreateUser(c.Request().Context(), user)
	if msg := takenMessage(err); msg != "" {
		if err := middleware.Flash(c, middleware.FlashDanger, msg); err != nil {
			return err
		}
		return render(c, http.StatusOK, "users/signup.html", echo.Map{"Form": form})
	} else if err != nil {
		return err
	}
	monitoring.SignupSuccess.Inc()

	if err := middleware.LoginUser(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

// Login checks the credentials and stores the user in the session
func (h *AuthHandler) Login(c echo.Context) error {
	var form models.LoginForm
	if c.Request().Method == http.MethodGet {
		return h.renderLogin(c, form, nil)
	}

	if err := c.Bind(&form); err != nil {
		return h.renderLogin(c, form, []string{"Invalid form submission"})
	}
	if err := c.Validate(&form); err != nil {
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonInvalidForm).Inc()
		return h.renderLogin(c, form, validators.Messages(err))
	}

	user, err := h.authenticate(c.Request().Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, errLockedOut):
		if err := middleware.Flash(c, middleware.FlashDanger, "Too many failed login attempts. Try again later."); err != nil {
			return err
		}
		return h.renderLogin(c, form, nil)
	case errors.Is(err, errInvalidCredentials):
		if err := middleware.Flash(c, middleware.FlashDanger, "Invalid credentials."); err != nil {
			return err
		}
		return h.renderLogin(c, form, nil)
	case err != nil:
		return err
	}

	if err := middleware.LoginUser(c, user); err != nil {
		return err
	}
	return flashRedirect(c, middleware.FlashSuccess, fmt.Sprintf("Hello, %s!", user.Username), "/")
}

func (h *AuthHandler) renderLogin(c echo.Context, form models.LoginForm, errs []string) error {
	return render(c, http.StatusOK, "users/login.html", echo.Map{
		"Form":            form,
		"Errors":          errs,
		"FirebaseEnabled": h.firebaseAuth != nil,
	})
}

// Logout clears the session
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := middleware.LogoutUser(c); err != nil {
		return err
	}
	return flashRedirect(c, middleware.FlashSuccess, "You have successfully logged out.", "/login")
}

// Token issues an API token for valid credentials
func (h *AuthHandler) Token(c echo.Context) error {
	var req models.LoginForm
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonInvalidForm).Inc()
		return validators.HTTPError(err)
	}

	user, err := h.authenticate(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, errLockedOut):
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many failed login attempts. Try again later.")
	case errors.Is(err, errInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials.")
	case err != nil:
		return err
	}

	token, err := middleware.GenerateToken(user, h.jwtSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errLockedOut          = errors.New("too many failed login attempts")
)

// authenticate returns the user when username and password match.
// Throttle failures are logged and do not block the login.
func (h *AuthHandler) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	locked, err := h.loginAttemptRepository.IsLockedOut(ctx, username)
	if err != nil {
		h.logger.Errorf("Failed to read login attempts for %s: %v", username, err)
	}
	if locked {
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonLockedOut).Inc()
		return nil, errLockedOut
	}

	user, err := h.userRepository.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if user == nil || !user.CheckPassword(password) {
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonInvalidCredentials).Inc()
		if err := h.loginAttemptRepository.IncrementLoginAttempts(ctx, username); err != nil {
			h.logger.Errorf("Failed to count login attempt for %s: %v", username, err)
		}
		return nil, errInvalidCredentials
	}

	if err := h.loginAttemptRepository.ResetLoginAttempts(ctx, username); err != nil {
		h.logger.Errorf("Failed to reset login attempts for %s: %v", username, err)
	}
	monitoring.LoginSuccess.Inc()
	return user, nil
}

// FirebaseLogin verifies a Firebase ID token and logs the matching account in,
// linking or creating it on first use
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	ctx := c.Request().Context()

	idToken := c.FormValue("id_token")
	if idToken == "" {
		return flashRedirect(c, middleware.FlashDanger, "Invalid credentials.", "/login")
	}

	identity, err := h.firebaseAuth.Verify(ctx, idToken)
	if err != nil {
		h.logger.Infof("Rejected Firebase ID token: %v", err)
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonInvalidCredentials).Inc()
		return flashRedirect(c, middleware.FlashDanger, "Invalid credentials.", "/login")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	if errors.Is(err, repositories.ErrNotFound) {
		user, err = h.linkFirebaseUser(ctx, identity)
	}
	switch {
	case errors.Is(err, errEmailUnverified):
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonInvalidCredentials).Inc()
		return flashRedirect(c, middleware.FlashDanger, "Verify your email address with Google before signing in.", "/login")
	case errors.Is(err, errFirebaseLinked):
		monitoring.LoginFailure.WithLabelValues(monitoring.ReasonInvalidCredentials).Inc()
		return flashRedirect(c, middleware.FlashDanger, "This email is already linked to another Google account.", "/login")
	case err != nil:
		return err
	}
	monitoring.LoginSuccess.Inc()

	if err := middleware.LoginUser(c, user); err != nil {
		return err
	}
	return flashRedirect(c, middleware.FlashSuccess, fmt.Sprintf("Hello, %s!", user.Username), "/")
}

var (
	errEmailUnverified = errors.New("firebase email not verified")
	errFirebaseLinked  = errors.New("email linked to another firebase account")
)

// linkFirebaseUser attaches identity to the account owning its email, or creates one.
// Unverified emails are neither linked nor registered.
func (h *AuthHandler) linkFirebaseUser(ctx context.Context, identity *firebase.Identity) (*models.User, error) {
	uid, email := identity.UID, identity.Email
	if email == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email address")
	}
	if !identity.EmailVerified {
		return nil, errEmailUnverified
	}

	user, err := h.userRepository.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.FirebaseUID != nil && *user.FirebaseUID != uid {
			return nil, errFirebaseLinked
		}
		user.FirebaseUID = &uid
		if err := h.userRepository.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	user = &models.User{Email: email, FirebaseUID: &uid}
	// Firebase users never use the password form
	if err := user.SetPassword(uuid.NewString()); err != nil {
		return nil, err
	}

	base := usernameFrom(identity.Name, email)
	for i := 0; i < 5; i++ {
		user.Username = base
		if i > 0 {
			user.Username = fmt.Sprintf("%s%d", truncate(base, 26), i+1)
		}
		err = h.userRepository.CreateUser(ctx, user)
		if !errors.Is(err, repositories.ErrUsernameTaken) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	monitoring.SignupSuccess.Inc()
	return user, nil
}

var usernameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// usernameFrom derives a username from a display name or the email's local part
func usernameFrom(name, email string) string {
	candidate := usernameCleaner.ReplaceAllString(name, "")
	if candidate == "" {
		candidate = usernameCleaner.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	}
	if candidate == "" {
		candidate = "warbler"
	}
	return truncate(strings.ToLower(candidate), 30)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// takenMessage returns the flash text for a uniqueness error, or ""
func takenMessage(err error) string {
	switch {
	case errors.Is(err, repositories.ErrUsernameTaken):
		return "Username already taken"
	case errors.Is(err, repositories.ErrEmailTaken):
		return "Email already taken"
	}
	return ""
}
