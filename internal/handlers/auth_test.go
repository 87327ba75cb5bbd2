package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/internal/router"
	"github.com/anonto42/warbler/pkg/firebase"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm("/signup", url.Values{
		"username": {"newbie"},
		"email":    {"newbie@email.com"},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path)
	require.Contains(t, body, "@newbie")

	user, err := app.users.GetUserByUsername(context.Background(), "newbie")
	require.NoError(t, err)
	require.True(t, user.CheckPassword(testPassword))
}

func TestSignupDuplicate(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u1")

	resp, body := app.postForm("/signup", url.Values{
		"username": {"u1"},
		"email":    {"fresh@email.com"},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/signup", resp.Request.URL.Path)
	require.Contains(t, body, "Username already taken")

	_, body = app.postForm("/signup", url.Values{
		"username": {"fresh"},
		"email":    {"u1@email.com"},
		"password": {testPassword},
	})
	require.Contains(t, body, "Email already taken")

	_, err := app.users.GetUserByUsername(context.Background(), "fresh")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSignupInvalidForm(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm("/signup", url.Values{
		"username": {"u1"},
		"email":    {"not-an-email"},
		"password": {"pw"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "email must be a valid email address")
	require.Contains(t, body, "password must be at least 6 characters")
}

func TestLoginSuccess(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u1")

	resp, body := app.postForm("/login", url.Values{"username": {"u1"}, "password": {testPassword}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path)
	require.Contains(t, body, "Hello, u1!")

	// logged in users are sent away from the login page
	resp, _ = app.get("/login")
	require.Equal(t, "/", resp.Request.URL.Path)
}

func TestLoginFail(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u2")

	resp, body := app.postForm("/login", url.Values{"username": {"u2"}, "password": {"hacker"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Invalid credentials.")

	_, body = app.postForm("/login", url.Values{"username": {"ghost"}, "password": {"hacker"}})
	require.Contains(t, body, "Invalid credentials.")
}

func TestLoginLockout(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u1")

	for i := 0; i < repositories.MaxLoginAttempts; i++ {
		_, body := app.postForm("/login", url.Values{"username": {"u1"}, "password": {"wrong-password"}})
		require.Contains(t, body, "Invalid credentials.")
	}

	_, body := app.postForm("/login", url.Values{"username": {"u1"}, "password": {testPassword}})
	require.Contains(t, body, "Too many failed login attempts. Try again later.")
	require.NotContains(t, body, "Hello, u1!")
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u1")
	app.login("u1")

	resp, body := app.postForm("/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Contains(t, body, "You have successfully logged out.")

	resp, body = app.get("/notifications")
	require.Equal(t, "/", resp.Request.URL.Path)
	require.Contains(t, body, "Access unauthorized.")
}

type fakeVerifier map[string]*firebase.Identity

func (f fakeVerifier) Verify(_ context.Context, idToken string) (*firebase.Identity, error) {
	identity, ok := f[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return identity, nil
}

func TestFirebaseLogin(t *testing.T) {
	verifier := fakeVerifier{
		"new-user": {UID: "uid-1", Email: "fb@email.com", EmailVerified: true, Name: "Fire Base"},
		"existing": {UID: "uid-2", Email: "u1@email.com", EmailVerified: true},
	}
	app := newTestApp(t, func(d *router.Dependencies) { d.Firebase = verifier })
	u1 := app.createUser("u1")
	ctx := context.Background()

	_, body := app.postForm("/login/firebase", url.Values{"id_token": {"new-user"}})
	require.Contains(t, body, "Hello, firebase!")
	created, err := app.users.GetUserByFirebaseUID(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, "fb@email.com", created.Email)

	app.postForm("/logout", nil)
	_, body = app.postForm("/login/firebase", url.Values{"id_token": {"existing"}})
	require.Contains(t, body, "Hello, u1!")
	linked, err := app.users.GetUserByFirebaseUID(ctx, "uid-2")
	require.NoError(t, err)
	require.Equal(t, u1.ID, linked.ID)

	app.postForm("/logout", nil)
	_, body = app.postForm("/login/firebase", url.Values{"id_token": {"forged"}})
	require.Contains(t, body, "Invalid credentials.")
}

func TestFirebaseLoginDisabled(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.postForm("/login/firebase", url.Values{"id_token": {"anything"}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIToken(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u1")

	token := app.token("u1")

	resp, body := app.api(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"id":1,"username":"u1","image_url":"/static/images/default-pic.svg"}`, body)

	resp, _ = app.api(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "u1", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = app.api(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "u1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.api(http.MethodGet, "/api/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPITokenMalformedJSON(t *testing.T) {
	app := newTestApp(t)

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/auth/token", stringsReader(`{"username":`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, body := app.do(http.DefaultClient, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "Malformed JSON")
}

func TestAPITokenLockout(t *testing.T) {
	app := newTestApp(t)
	app.createUser("u1")

	for i := 0; i < repositories.MaxLoginAttempts; i++ {
		resp, _ := app.api(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "u1", "password": "wrong-password"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := app.api(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "u1", "password": testPassword})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestFirebaseLoginUnverifiedEmail(t *testing.T) {
	verifier := fakeVerifier{
		"unverified":     {UID: "other-uid", Email: "u1@email.com"},
		"unverified-new": {UID: "new-uid", Email: "nobody@email.com"},
	}
	app := newTestApp(t, func(d *router.Dependencies) { d.Firebase = verifier })
	u1 := app.createUser("u1")
	ctx := context.Background()

	resp, body := app.postForm("/login/firebase", url.Values{"id_token": {"unverified"}})
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Contains(t, body, "Verify your email address with Google before signing in.")
	require.NotContains(t, body, "Hello, u1!")

	_, err := app.users.GetUserByFirebaseUID(ctx, "other-uid")
	require.ErrorIs(t, err, repositories.ErrNotFound)
	stored, err := app.users.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.Nil(t, stored.FirebaseUID)

	// still anonymous
	resp, _ = app.get("/notifications")
	require.Equal(t, "/", resp.Request.URL.Path)

	app.postForm("/login/firebase", url.Values{"id_token": {"unverified-new"}})
	_, err = app.users.GetUserByEmail(ctx, "nobody@email.com")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestFirebaseLoginKeepsExistingLink(t *testing.T) {
	verifier := fakeVerifier{
		"first":  {UID: "uid-first", Email: "u1@email.com", EmailVerified: true},
		"second": {UID: "uid-second", Email: "u1@email.com", EmailVerified: true},
	}
	app := newTestApp(t, func(d *router.Dependencies) { d.Firebase = verifier })
	u1 := app.createUser("u1")
	ctx := context.Background()

	_, body := app.postForm("/login/firebase", url.Values{"id_token": {"first"}})
	require.Contains(t, body, "Hello, u1!")
	app.postForm("/logout", nil)

	resp, body := app.postForm("/login/firebase", url.Values{"id_token": {"second"}})
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Contains(t, body, "already linked to another Google account")

	stored, err := app.users.GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FirebaseUID)
	require.Equal(t, "uid-first", *stored.FirebaseUID)
}

func TestAPITokenOfDeletedUser(t *testing.T) {
	app := newTestApp(t)
	u1 := app.createUser("u1")
	u2 := app.createUser("u2")
	token := app.token("u1")
	require.NoError(t, app.users.DeleteUser(context.Background(), u1.ID))

	resp, body := app.api(http.MethodPost, "/api/v1/messages", token, map[string]string{"text": "ghost"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "Invalid token")

	resp, _ = app.api(http.MethodPost, "/api/v1/users/"+itoa(u2.ID)+"/follow", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = app.api(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var count int64
	require.NoError(t, app.db.Table("messages").Count(&count).Error)
	require.Zero(t, count)
}
