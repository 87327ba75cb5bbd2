package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/anonto42/warbler/internal/models"
	"github.com/stretchr/testify/require"
)

func TestHomeAnonymous(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "New to Warbler?")
	require.Contains(t, body, `href="/signup"`)
}

func TestHomeTimeline(t *testing.T) {
	app := newTestApp(t)
	u1 := app.createUser("u1")
	u2 := app.createUser("u2")
	u3 := app.createUser("u3")
	app.createMessage(u1.ID, "from-u1")
	app.createMessage(u2.ID, "from-u2")
	app.createMessage(u3.ID, "from-u3")
	require.NoError(t, app.follows.CreateFollow(context.Background(), u1.ID, u2.ID))
	app.login("u1")

	resp, body := app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "from-u1")
	require.Contains(t, body, "from-u2")
	require.NotContains(t, body, "from-u3")
	require.Contains(t, body, `/messages/2/like`)
}

func TestTimelineAPI(t *testing.T) {
	app := newTestApp(t)
	u1 := app.createUser("u1")
	u2 := app.createUser("u2")
	u3 := app.createUser("u3")
	for i := 0; i < 3; i++ {
		app.createMessage(u2.ID, "from-u2")
	}
	app.createMessage(u3.ID, "from-u3")
	require.NoError(t, app.follows.CreateFollow(context.Background(), u1.ID, u2.ID))
	token := app.token("u1")

	resp, body := app.api(http.MethodGet, "/api/v1/timeline", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Messages []models.MessageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Messages, 3)
	for i, m := range out.Messages {
		require.Equal(t, "u2", m.Author.Username)
		if i > 0 {
			require.False(t, m.Timestamp.After(out.Messages[i-1].Timestamp))
		}
	}

	_, body = app.api(http.MethodGet, "/api/v1/timeline?limit=2", token, nil)
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Messages, 2)

	for _, limit := range []string{"0", "101", "abc"} {
		resp, _ = app.api(http.MethodGet, "/api/v1/timeline?limit="+limit, token, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, limit)
	}
}
