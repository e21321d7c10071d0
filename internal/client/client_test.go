package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/todolist/internal/auth"
	"github.com/geocoder89/todolist/internal/client"
	apphttp "github.com/geocoder89/todolist/internal/http"
	"github.com/geocoder89/todolist/internal/repo/memory"
	"github.com/geocoder89/todolist/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newServer(t *testing.T, tokens *auth.Manager) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher, err := security.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	router := apphttp.NewRouter(apphttp.Deps{
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceName: "todolist-test",
		Store:       memory.New(),
		Tokens:      tokens,
		Hasher:      hasher,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func ptr[T any](v T) *T { return &v }

func TestClientFlow(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t, auth.NewManager("test-secret", time.Hour))
	c := client.New(srv.URL + "/api")

	greeting, err := c.Greeting(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", greeting)

	_, err = c.Items(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	u, err := c.Register(ctx, "Ada", "Ada@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.True(t, c.Session().LoggedIn())

	sessionUser, ok := c.Session().User()
	require.True(t, ok)
	assert.Equal(t, u, sessionUser)

	it, err := c.AddItem(ctx, "  Buy milk ")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", it.Name)

	updated, err := c.UpdateItem(ctx, it.ID, client.UpdateItem{Completed: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Buy milk", updated.Name)

	items, err := c.Items(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	me, err := c.UpdateMe(ctx, client.UpdateMe{Name: ptr("Grace")})
	require.NoError(t, err)
	assert.Equal(t, "Grace", me.Name)

	_, err = c.UpdateMe(ctx, client.UpdateMe{Email: ptr("new@x.com"), CurrentPassword: ptr("wrong-one")})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Current password is incorrect", apiErr.Message)

	export, err := c.ExportMe(ctx)
	require.NoError(t, err)
	assert.Len(t, export.Todos, 1)
	assert.Equal(t, "Grace", export.User.Name)

	require.NoError(t, c.DeleteItem(ctx, it.ID))

	err = c.DeleteItem(ctx, it.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	c.Logout()
	assert.False(t, c.Session().LoggedIn())

	_, err = c.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, c.DeleteMe(ctx, "password123"))
	assert.False(t, c.Session().LoggedIn())
}

func TestClientClearsSessionOn401(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t, auth.NewManager("test-secret", time.Minute))

	c := client.New(srv.URL + "/api")
	u, err := c.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	// as if the stored token had expired
	c.Session().Set("not-a-valid-token", u)

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, c.Session().LoggedIn())

	_, ok := c.Session().User()
	assert.False(t, ok)
}

func TestAPIErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).Greeting(context.Background())

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
