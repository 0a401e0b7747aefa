package middleware

import (
    "bytes"
    "errors"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/utils"
)

const secret = "test-secret"

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
    e := echo.New()
    req := httptest.NewRequest(method, target, nil)
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTAuthSetsIdentity(t *testing.T) {
    tok, err := utils.NewAccessToken(secret, 9, model.RoleCustomer, 5)
    require.NoError(t, err)
    c, rec := newCtx(http.MethodGet, "/v1/me")
    c.Request().Header.Set("Authorization", "Bearer "+tok.Token)

    require.NoError(t, JWTAuth(secret)(func(c echo.Context) error {
        uid, ok := UserID(c)
        assert.True(t, ok)
        assert.Equal(t, uint64(9), uid)
        assert.Equal(t, model.RoleCustomer, Role(c))
        return c.NoContent(http.StatusNoContent)
    })(c))
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJWTAuthRejects(t *testing.T) {
    c, rec := newCtx(http.MethodGet, "/v1/me")
    require.NoError(t, JWTAuth(secret)(ok)(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    c, rec = newCtx(http.MethodGet, "/v1/me")
    c.Request().Header.Set("Authorization", "Bearer garbage")
    require.NoError(t, JWTAuth(secret)(ok)(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthQueryTokenOnlyForWebsocket(t *testing.T) {
    tok, err := utils.NewAccessToken(secret, 3, model.RoleCustomer, 5)
    require.NoError(t, err)

    c, rec := newCtx(http.MethodGet, "/v1/ws?token="+tok.Token)
    require.NoError(t, JWTAuth(secret)(ok)(c))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    c, rec = newCtx(http.MethodGet, "/v1/ws?token="+tok.Token)
    c.Request().Header.Set("Connection", "Upgrade")
    c.Request().Header.Set("Upgrade", "websocket")
    require.NoError(t, JWTAuth(secret)(ok)(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
    c, rec := newCtx(http.MethodPost, "/v1/rooms")
    c.Set(CtxRole, model.RoleCustomer)
    require.NoError(t, RequireRole(model.RoleAdmin)(ok)(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    c, rec = newCtx(http.MethodPost, "/v1/rooms")
    c.Set(CtxRole, model.RoleAdmin)
    require.NoError(t, RequireRole(model.RoleAdmin)(ok)(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func rateCfg() config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled:        true,
        Capacity:       10,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            time.Minute,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
}

func expectBucket(mock redismock.ClientMock, cfg config.RateLimitConfig, now time.Time) *redismock.ExpectedCmd {
    return mock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:ip:192.0.2.1"},
        now.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second))
}

func TestTokenBucketAllows(t *testing.T) {
    db, mock := redismock.NewClientMock()
    cfg := rateCfg()
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    expectBucket(mock, cfg, now).SetVal([]interface{}{int64(1), int64(9), int64(0)})

    c, rec := newCtx(http.MethodGet, "/v1/movies")
    mw := newTokenBucket(cfg, db, logger.Discard(), func() time.Time { return now })
    require.NoError(t, mw(ok)(c))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketBlocks(t *testing.T) {
    db, mock := redismock.NewClientMock()
    cfg := rateCfg()
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    expectBucket(mock, cfg, now).SetVal([]interface{}{int64(0), int64(0), int64(1500)})

    c, rec := newCtx(http.MethodPost, "/v1/bookings")
    mw := newTokenBucket(cfg, db, logger.Discard(), func() time.Time { return now })
    require.NoError(t, mw(ok)(c))

    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
    db, mock := redismock.NewClientMock()
    cfg := rateCfg()
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    expectBucket(mock, cfg, now).SetErr(errors.New("connection refused"))

    c, rec := newCtx(http.MethodGet, "/v1/movies")
    mw := newTokenBucket(cfg, db, logger.Discard(), func() time.Time { return now })
    require.NoError(t, mw(ok)(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
    c, rec := newCtx(http.MethodGet, "/v1/movies")
    require.NoError(t, NewTokenBucket(rateCfg(), nil, logger.Discard())(ok)(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRateKeyStrategies(t *testing.T) {
    c, _ := newCtx(http.MethodGet, "/v1/movies")
    c.SetPath("/v1/movies")
    c.Set(CtxUserID, uint64(5))
    cfg := rateCfg()

    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:user:5", buildRateKey(cfg, c))
    cfg.KeyStrategy = "ip_user_route"
    assert.Equal(t, "rl:ip:192.0.2.1:user:5:route:GET /v1/movies", buildRateKey(cfg, c))
}

func cacheCfg() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          2 * time.Second,
        KeyStrategy:  "route_query",
        Prefix:       "cache",
        MaxBodyBytes: 1 << 20,
    }
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
    a, _ := newCtx(http.MethodGet, "/v1/screenings/1/seats")
    b, _ := newCtx(http.MethodGet, "/v1/screenings/2/seats")
    a.SetPath("/v1/screenings/:id/seats")
    b.SetPath("/v1/screenings/:id/seats")
    assert.NotEqual(t, cacheKeyFrom(cacheCfg(), a), cacheKeyFrom(cacheCfg(), b))
    assert.True(t, strings.HasPrefix(cacheKeyFrom(cacheCfg(), a), "cache:"))
}

func TestCacheMissStoresResponse(t *testing.T) {
    db, mock := redismock.NewClientMock()
    cfg := cacheCfg()
    c, rec := newCtx(http.MethodGet, "/v1/screenings/1/seats")
    key := cacheKeyFrom(cfg, c)

    payload, err := encodePayload(http.StatusOK,
        http.Header{echo.HeaderContentType: {echo.MIMETextPlainCharsetUTF8}}, []byte("ok"))
    require.NoError(t, err)
    mock.ExpectGet(key).RedisNil()
    mock.ExpectSetEx(key, payload, cfg.TTL).SetVal("OK")

    require.NoError(t, NewRedisCache(cfg, db)(ok)(c))
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.Equal(t, "ok", rec.Body.String())
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheHitServesStoredResponse(t *testing.T) {
    db, mock := redismock.NewClientMock()
    cfg := cacheCfg()
    c, rec := newCtx(http.MethodGet, "/v1/screenings/1/seats")
    key := cacheKeyFrom(cfg, c)

    payload, err := encodePayload(http.StatusOK,
        http.Header{echo.HeaderContentType: {echo.MIMEApplicationJSON}}, []byte(`{"rows":["A"]}`))
    require.NoError(t, err)
    mock.ExpectGet(key).SetVal(string(payload))

    called := false
    require.NoError(t, NewRedisCache(cfg, db)(func(c echo.Context) error {
        called = true
        return nil
    })(c))
    assert.False(t, called)
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
    assert.JSONEq(t, `{"rows":["A"]}`, rec.Body.String())
}

func TestCacheSkipsOtherMethods(t *testing.T) {
    db, mock := redismock.NewClientMock()
    c, rec := newCtx(http.MethodPost, "/v1/bookings")
    require.NoError(t, NewRedisCache(cacheCfg(), db)(ok)(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodePayloadRejectsShortInput(t *testing.T) {
    _, _, _, err := decodePayload([]byte{0, 1})
    assert.ErrorIs(t, err, errBadPayload)
}

func TestRequestLogAssignsRequestID(t *testing.T) {
    var buf bytes.Buffer
    l := slog.New(slog.NewJSONHandler(&buf, nil))
    c, rec := newCtx(http.MethodGet, "/healthz")

    require.NoError(t, RequestLog(l)(ok)(c))
    rid := rec.Header().Get(echo.HeaderXRequestID)
    assert.NotEmpty(t, rid)
    assert.Contains(t, buf.String(), rid)
    assert.Contains(t, buf.String(), `"status":200`)
}

func TestRequestLogKeepsClientRequestID(t *testing.T) {
    c, rec := newCtx(http.MethodGet, "/healthz")
    c.Request().Header.Set(echo.HeaderXRequestID, "abc-123")
    require.NoError(t, RequestLog(logger.Discard())(ok)(c))
    assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}
