package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	accounthttp "github.com/AlibekovAA/book-exchange/backend/internal/account/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/account/service"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/recordstore"
)

type envelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Account domain.Profile `json:"account"`
	Token   string         `json:"token"`
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func newTestRouter(t *testing.T, cfg accounthttp.RouterConfig) http.Handler {
	t.Helper()

	log, _ := logger.New("", "test", "error")
	ids := commoncrypto.NewUUIDGenerator()
	store, err := recordstore.OpenFileStore[domain.Account](constants.AccountsCollection, t.TempDir(), ids, log)
	require.NoError(t, err)

	svc := service.NewAccountService(service.AccountServiceDeps{
		Store:  store,
		Hasher: &commoncrypto.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens: service.NewTokenIssuer(constants.TestJWTSecret, ids, time.Hour, nil),
		Log:    log,
	})

	cfg.JWTSecret = constants.TestJWTSecret
	return accounthttp.NewRouter(svc, cfg, log)
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestAccountHTTP_RegisterAuthenticateAndMe(t *testing.T) {
	h := newTestRouter(t, accounthttp.RouterConfig{})

	rec, reg := do(t, h, http.MethodPost, "/", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": "pw1", "role": "owner",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Registered successfully", reg.Message)
	assert.NotEmpty(t, reg.Account.ID)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
	assert.NotContains(t, rec.Body.String(), "pw1")

	rec, session := do(t, h, http.MethodPost, "/session", map[string]string{
		"email": "ann@x.com", "password": "pw1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reg.Account.ID, session.Account.ID)
	require.NotEmpty(t, session.Token)

	rec, me := do(t, h, http.MethodGet, "/me", nil, map[string]string{
		"Authorization": "Bearer " + session.Token,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reg.Account.ID, me.Account.ID)

	rec, byID := do(t, h, http.MethodGet, "/"+reg.Account.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann@x.com", byID.Account.Email)
}

func TestAccountHTTP_ErrorStatuses(t *testing.T) {
	h := newTestRouter(t, accounthttp.RouterConfig{})
	ann := map[string]string{"name": "Ann", "email": "ann@x.com", "password": "pw1", "role": "owner"}

	rec, _ := do(t, h, http.MethodPost, "/", ann, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/", ann, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", env.Code)

	rec, env = do(t, h, http.MethodPost, "/", map[string]string{"name": "Bob", "email": "bob@x.com", "password": "pw", "role": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid role. must be 'owner' or 'seeker'", env.Message)

	rec, _ = do(t, h, http.MethodPost, "/session", map[string]string{"email": "ann@x.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/session", map[string]string{"email": "nope", "password": "pw1"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/missing-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountHTTP_InvalidJSON(t *testing.T) {
	h := newTestRouter(t, accounthttp.RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env commonhttp.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "INVALID_PAYLOAD", env.Code)
}

func TestAccountHTTP_RateLimited(t *testing.T) {
	h := newTestRouter(t, accounthttp.RouterConfig{RegisterLimiter: denyAll{}})

	rec, env := do(t, h, http.MethodPost, "/", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": "pw1", "role": "owner",
	}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, commonhttp.CodeRateLimited, env.Code)
}
