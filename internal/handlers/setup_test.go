package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/anonto42/warbler/internal/models"
	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/internal/router"
	mytesting "github.com/anonto42/warbler/internal/testing"
	"github.com/anonto42/warbler/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPassword = "password"

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	server *httptest.Server
	client *http.Client

	users    *repositories.PostgresUserRepository
	messages *repositories.PostgresMessageRepository
	follows  *repositories.PostgresFollowRepository
	likes    *repositories.PostgresLikeRepository
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		SecretKey:      "test-secret",
		JWTSecret:      "test-jwt-secret",
		CSRFEnabled:    false,
		StaticDir:      "../../static",
		MetricsEnabled: true,
	}
}

func newTestApp(t *testing.T, opts ...func(*router.Dependencies)) *testApp {
	t.Helper()
	db := mytesting.NewDB(t)

	deps := router.Dependencies{
		Config: testConfig(),
		Logger: zap.NewNop(),
		DB:     db,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	e, err := router.New(deps)
	require.NoError(t, err)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:        t,
		db:       db,
		server:   server,
		client:   &http.Client{Jar: jar},
		users:    repositories.NewPostgresUserRepository(db),
		messages: repositories.NewPostgresMessageRepository(db),
		follows:  repositories.NewPostgresFollowRepository(db),
		likes:    repositories.NewPostgresLikeRepository(db),
	}
}

func (a *testApp) createUser(username string) *models.User {
	a.t.Helper()
	user := &models.User{Username: username, Email: username + "@email.com"}
	require.NoError(a.t, user.SetPassword(testPassword))
	require.NoError(a.t, a.users.CreateUser(context.Background(), user))
	return user
}

func (a *testApp) createMessage(userID uint, text string) *models.Message {
	a.t.Helper()
	message := &models.Message{Text: text, UserID: userID}
	require.NoError(a.t, a.messages.CreateMessage(context.Background(), message))
	return message
}

// noRedirect returns a client sharing the session cookies that stops at the first response
func (a *testApp) noRedirect() *http.Client {
	return &http.Client{
		Jar: a.client.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) do(client *http.Client, req *http.Request) (*http.Response, string) {
	a.t.Helper()
	resp, err := client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(body)
}

func (a *testApp) get(path string) (*http.Response, string) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(a.client, req)
}

func (a *testApp) postFormWith(client *http.Client, path string, values url.Values) (*http.Response, string) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(values.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(client, req)
}

func (a *testApp) postForm(path string, values url.Values) (*http.Response, string) {
	a.t.Helper()
	return a.postFormWith(a.client, path, values)
}

func (a *testApp) login(username string) {
	a.t.Helper()
	resp, body := a.postForm("/login", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	require.Contains(a.t, body, "Hello, "+username+"!")
}

func (a *testApp) api(method, path, token string, payload interface{}) (*http.Response, string) {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(a.t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.do(http.DefaultClient, req)
}

func (a *testApp) token(username string) string {
	a.t.Helper()
	resp, body := a.api(http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(a.t, http.StatusOK, resp.StatusCode, body)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal([]byte(body), &out))
	require.NotEmpty(a.t, out.Token)
	return out.Token
}

func userURL(id uint) string {
	return "/users/" + itoa(id)
}

func messageURL(id uint) string {
	return "/messages/" + itoa(id)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
