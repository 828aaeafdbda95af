package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/config"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		RefreshTokenTTL: "1h",
	}
}

func newAuthApp(cfg *config.Config) *fiber.App {
	app := testutil.NewApp()
	app.Post("/auth/register", auth.RegisterHandler(cfg))
	app.Post("/auth/login", auth.LoginHandler(cfg))
	app.Post("/auth/refresh", auth.RefreshHandler(cfg))
	protected := app.Group("", auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler())
	return app
}

func jsonReq(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func register(t *testing.T, app *fiber.App) {
	t.Helper()
	resp, err := app.Test(jsonReq(http.MethodPost, "/auth/register", map[string]string{
		"name": "Thandi", "email": "thandi@example.com", "password": "s3cret-pass",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func login(t *testing.T, app *fiber.App) (access, refresh string) {
	t.Helper()
	resp, err := app.Test(jsonReq(http.MethodPost, "/auth/login", map[string]string{
		"email": "thandi@example.com", "password": "s3cret-pass",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.AccessToken)
	require.NotEmpty(t, out.RefreshToken)
	return out.AccessToken, out.RefreshToken
}

func TestRegisterAndLogin(t *testing.T) {
	testutil.SetupDB(t)
	cfg := testConfig()
	app := newAuthApp(cfg)

	register(t, app)
	access, _ := login(t, app)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "thandi@example.com", me["email"])
}

func TestDuplicateEmailRejected(t *testing.T) {
	testutil.SetupDB(t)
	app := newAuthApp(testConfig())

	register(t, app)
	resp, err := app.Test(jsonReq(http.MethodPost, "/auth/register", map[string]string{
		"name": "Copycat", "email": "thandi@example.com", "password": "another-pass",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWrongPasswordRejected(t *testing.T) {
	testutil.SetupDB(t)
	app := newAuthApp(testConfig())

	register(t, app)
	resp, err := app.Test(jsonReq(http.MethodPost, "/auth/login", map[string]string{
		"email": "thandi@example.com", "password": "wrong",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	testutil.SetupDB(t)
	app := newAuthApp(testConfig())

	register(t, app)
	_, refresh := login(t, app)

	// first use works and returns a new pair
	resp, err := app.Test(jsonReq(http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, refresh, pair.RefreshToken)

	// replaying the old token fails
	resp, err = app.Test(jsonReq(http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// the rotated token still works
	resp, err = app.Test(jsonReq(http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminUserListingRequiresPlatformAdmin(t *testing.T) {
	testutil.SetupDB(t)
	member := testutil.CreateUser(t, "Sipho", "sipho@example.com")
	operator := testutil.CreateUser(t, "Nomsa", "nomsa@example.com")
	require.NoError(t, database.DB.Model(operator).
		Update("role", models.RolePlatformAdmin).Error)
	operator.Role = models.RolePlatformAdmin

	newAdminApp := func(user *models.User) *fiber.App {
		app := testutil.NewApp()
		app.Use(testutil.AuthAs(user))
		adm := app.Group("/admin", auth.RequireRole(models.RolePlatformAdmin))
		adm.Get("/users", auth.ListUsersHandler())
		return app
	}

	resp, err := newAdminApp(member).Test(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = newAdminApp(operator).Test(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	assert.Len(t, users, 2)
}

func TestGarbageRefreshTokenRejected(t *testing.T) {
	testutil.SetupDB(t)
	app := newAuthApp(testConfig())

	resp, err := app.Test(jsonReq(http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": "1.deadbeef",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
