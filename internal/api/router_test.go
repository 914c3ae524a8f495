package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/config"
	"github.com/Marga-Ghale/cardpool-backend/internal/metrics"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository/memory"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

type apiFixture struct {
	t      *testing.T
	router *gin.Engine
	auth   service.AuthService
	now    time.Time
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &apiFixture{t: t, now: time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)}
	cfg := &config.Config{
		Environment:      "test",
		StoreDriver:      "memory",
		JWTSecret:        "test-secret",
		JWTExpiry:        1,
		ChatPollInterval: 5 * time.Second,
		CORSOrigins:      []string{"http://localhost:5173"},
	}

	store := memory.NewStore()
	store.SetClock(func() time.Time { return f.now })
	m := metrics.New()

	services := service.NewServices(&service.ServiceDeps{
		Config:  cfg,
		Repos:   memory.NewRepositories(store),
		Metrics: m,
		Clock:   func() time.Time { return f.now },
	})
	f.auth = services.Auth
	f.router = NewRouter(RouterDeps{Config: cfg, Services: services, Metrics: m})
	return f
}

func (f *apiFixture) token(email, name string) string {
	tok, err := f.auth.IssueToken(email, name)
	require.NoError(f.t, err)
	return tok
}

func (f *apiFixture) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (f *apiFixture) doList(method, path, token string) (int, []interface{}) {
	f.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out []interface{}
	if w.Code == http.StatusOK {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestFridayDraftScenario(t *testing.T) {
	f := newAPI(t)
	alice := f.token("alice@example.com", "Alice")
	bob := f.token("bob@example.com", "Bob")
	mallory := f.token("mallory@example.com", "Mallory")

	// Alice creates the group.
	code, group := f.do(http.MethodPost, "/api/groups", alice, map[string]interface{}{"name": "Friday Draft"})
	require.Equal(t, http.StatusCreated, code)
	groupID := group["id"].(string)
	invite := group["invite_code"].(string)
	assert.Len(t, invite, 6)

	// Bob joins, a second join conflicts.
	code, _ = f.do(http.MethodPost, "/api/groups/join", bob, map[string]interface{}{"invite_code": invite})
	require.Equal(t, http.StatusOK, code)
	code, body := f.do(http.MethodPost, "/api/groups/join", bob, map[string]interface{}{"invite_code": invite})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_member", body["code"])

	// Outsiders are refused.
	code, body = f.do(http.MethodGet, "/api/groups/"+groupID, mallory, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	// Bob opens an order due in two hours.
	deadline := f.now.Add(2 * time.Hour)
	code, order := f.do(http.MethodPost, "/api/groups/"+groupID+"/orders", bob, map[string]interface{}{
		"title":    "MH3 singles",
		"deadline": deadline,
	})
	require.Equal(t, http.StatusCreated, code)
	orderID := order["id"].(string)
	assert.Equal(t, "USD", order["currency"])
	assert.Equal(t, "open", order["status"])
	assert.Equal(t, "0.00", order["total_value"])
	assert.Equal(t, true, order["can_add_cards"])

	// Both add cards.
	code, _ = f.do(http.MethodPost, "/api/orders/"+orderID+"/cards", alice, map[string]interface{}{
		"scryfall_id": "s1", "card_name": "Ragavan", "price": "2.50", "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, code)
	code, _ = f.do(http.MethodPost, "/api/orders/"+orderID+"/cards", bob, map[string]interface{}{
		"scryfall_id": "s2", "card_name": "Fury", "price": 6,
	})
	require.Equal(t, http.StatusCreated, code)

	code, list := f.do(http.MethodGet, "/api/orders/"+orderID+"/cards", bob, nil)
	require.Equal(t, http.StatusOK, code)
	summary := list["summary"].(map[string]interface{})
	assert.Equal(t, "11.00", summary["grand_total"])
	assert.Len(t, list["cards"], 2)

	// Chat in the order channel.
	code, _ = f.do(http.MethodPost, "/api/orders/"+orderID+"/chat", alice, map[string]interface{}{"message": "  sending Friday  "})
	require.Equal(t, http.StatusCreated, code)
	code, chat := f.do(http.MethodGet, "/api/orders/"+orderID+"/chat", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 5000, chat["poll_interval_ms"])
	messages := chat["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "sending Friday", messages[0].(map[string]interface{})["message"])

	// Only the owner changes status.
	code, _ = f.do(http.MethodPatch, "/api/orders/"+orderID+"/status", bob, map[string]interface{}{"status": "closed"})
	assert.Equal(t, http.StatusForbidden, code)
	code, order = f.do(http.MethodPatch, "/api/orders/"+orderID+"/status", alice, map[string]interface{}{"status": "closed"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, order["can_add_cards"])

	code, body = f.do(http.MethodPost, "/api/orders/"+orderID+"/cards", bob, map[string]interface{}{
		"scryfall_id": "s3", "card_name": "Bolt",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "order_locked", body["code"])

	code, order = f.do(http.MethodPatch, "/api/orders/"+orderID+"/total", alice, map[string]interface{}{"total_value": "10.5"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "10.50", order["total_value"])

	// Alice deletes the group and everything goes with it.
	code, _ = f.do(http.MethodDelete, "/api/groups/"+groupID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = f.do(http.MethodDelete, "/api/groups/"+groupID, alice, nil)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = f.do(http.MethodGet, "/api/orders/"+orderID, alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, groups := f.doList(http.MethodGet, "/api/groups", bob)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, groups)
}

func TestValidationErrors(t *testing.T) {
	f := newAPI(t)
	alice := f.token("alice@example.com", "Alice")

	code, body := f.do(http.MethodPost, "/api/groups", alice, map[string]interface{}{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["code"])

	code, body = f.do(http.MethodPost, "/api/groups/join", alice, map[string]interface{}{"invite_code": "NOPE00"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["code"])

	code, _ = f.do(http.MethodPut, "/api/users/me", alice, map[string]interface{}{"display_name": ""})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthentication(t *testing.T) {
	f := newAPI(t)

	code, body := f.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", body["code"])

	code, _ = f.do(http.MethodGet, "/api/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, tok := f.do(http.MethodPost, "/api/dev/token", "", map[string]interface{}{"email": "Dana@Example.com", "name": "Dana"})
	require.Equal(t, http.StatusOK, code)

	code, me := f.do(http.MethodGet, "/api/users/me", tok["token"].(string), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dana@example.com", me["email"])
	assert.Equal(t, true, me["needs_display_name"])

	code, me = f.do(http.MethodPut, "/api/users/me", tok["token"].(string), map[string]interface{}{"display_name": "D"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, me["needs_display_name"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t)

	code, body := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cardpool_http_requests_total")
}

func TestCatalogShortQuery(t *testing.T) {
	f := newAPI(t)
	alice := f.token("alice@example.com", "Alice")

	code, body := f.do(http.MethodGet, "/api/catalog/search?q=a", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["cards"])
	assert.Equal(t, false, body["superseded"])
}
