package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/space-booking/internal/config"
	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/utils"
)

const testSecret = "test-secret"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newProtected() *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTAuth(testSecret))
	g.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		RequireRole(model.RoleAdministrator))
	return e
}

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := newProtected()

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, 7, "moderator"))
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"moderator"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newProtected()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearer(t, 1, "user"))
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearer(t, 1, "administrator"))
	assert.Equal(t, http.StatusNoContent, serve(e, req).Code)
}

func TestUserIDConversions(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, ok := UserID(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", currentUserID(c))

	c.Set(CtxUserID, "12")
	id, ok := UserID(c)
	assert.True(t, ok)
	assert.Equal(t, uint64(12), id)

	c.Set(CtxUserID, float64(3))
	id, _ = UserID(c)
	assert.Equal(t, uint64(3), id)
	assert.Equal(t, "3", currentUserID(c))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/reservations")
	c.Set(CtxUserID, uint64(5))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:5", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:10.0.0.1:user:5:route:POST /v1/reservations", buildRateKey(cfg, c))

	cfg.WriteCost = 4
	assert.Equal(t, 4, requestCost(cfg, http.MethodPost))
	assert.Equal(t, 1, requestCost(cfg, http.MethodGet))
}

func TestMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	e.Use(PurgeOnWrite(config.CacheConfig{Enabled: true}, nil, nil))
	e.POST("/x", func(c echo.Context) error { return c.String(http.StatusCreated, "ok") })

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	n, err := PurgeCache(context.Background(), nil, "spaces")
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCacheKeyIgnoresUnrelatedStrategyParts(t *testing.T) {
	e := echo.New()
	mk := func(q string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/spaces?"+q, nil), httptest.NewRecorder())
		c.SetPath("/v1/spaces")
		return cacheKeyFrom(config.CacheConfig{Prefix: "spaces", KeyStrategy: "route_query"}, c)
	}
	assert.Equal(t, mk("floor=2"), mk("floor=2"))
	assert.NotEqual(t, mk("floor=2"), mk("floor=3"))
	assert.Contains(t, mk(""), "spaces:")
}

func TestCaptureWriterOverflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflow)
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.overflow)
	assert.Equal(t, "abcde", rec.Body.String())
}
