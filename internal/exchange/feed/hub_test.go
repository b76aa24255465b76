package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/exchange/domain"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	log, _ := logger.New("", "test", "error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(Handler(hub, constants.TestJWTSecret, []string{"*"}, log))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func sessionFor(t *testing.T, accountID string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": accountID,
		"usr": accountID + "@x.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(constants.TestJWTSecret))
	require.NoError(t, err)
	return token
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func dial(t *testing.T, srv *httptest.Server, accountID string) *gorillaWS.Conn {
	t.Helper()

	conn, _, err := gorillaWS.DefaultDialer.Dial(wsURL(srv)+"?token="+sessionFor(t, accountID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int64) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *gorillaWS.Conn) domain.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event domain.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHub_DeliversToOwnerAndRequesterOnly(t *testing.T) {
	hub, srv := startHub(t)

	owner := dial(t, srv, "ann")
	requester := dial(t, srv, "bob")
	bystander := dial(t, srv, "carl")
	waitForClients(t, hub, 3)

	hub.Publish(domain.Event{
		Type:     domain.EventCreated,
		Exchange: domain.Proposal{ID: "x1", OwnerID: "ann", RequesterID: "bob", Status: domain.StatusPending},
	})

	for _, conn := range []*gorillaWS.Conn{owner, requester} {
		event := readEvent(t, conn)
		assert.Equal(t, domain.EventCreated, event.Type)
		assert.Equal(t, "x1", event.Exchange.ID)
	}

	require.NoError(t, bystander.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bystander.ReadMessage()
	assert.Error(t, err, "bystander must not receive the event")
}

func TestHandler_RequiresValidSession(t *testing.T) {
	_, srv := startHub(t)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ann", "usr": "ann@x.com", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret-another-secret-another"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"no token", "", "MISSING_AUTHORIZATION"},
		{"account id alone", "?accountId=ann", "MISSING_AUTHORIZATION"},
		{"garbage token", "?token=garbage", "INVALID_TOKEN"},
		{"foreign signature", "?token=" + foreign, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestHandler_BearerHeaderSubscribesTokenSubject(t *testing.T) {
	hub, srv := startHub(t)

	header := http.Header{"Authorization": []string{"Bearer " + sessionFor(t, "ann")}}
	conn, _, err := gorillaWS.DefaultDialer.Dial(wsURL(srv)+"?accountId=bob", header)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Publish(domain.Event{
		Type:     domain.EventCreated,
		Exchange: domain.Proposal{ID: "x2", OwnerID: "bob", RequesterID: "carl", Status: domain.StatusPending},
	})
	hub.Publish(domain.Event{
		Type:     domain.EventCreated,
		Exchange: domain.Proposal{ID: "x3", OwnerID: "ann", RequesterID: "carl", Status: domain.StatusPending},
	})

	event := readEvent(t, conn)
	assert.Equal(t, "x3", event.Exchange.ID, "subscription follows the token, not the query")
}

func TestHub_UnregistersClosedConnections(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "ann")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	log, _ := logger.New("", "test", "error")
	hub := NewHub(log)

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer*2; i++ {
			hub.Publish(domain.Event{Type: domain.EventCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked without a running hub")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	log, _ := logger.New("", "test", "error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(Handler(hub, constants.TestJWTSecret, []string{"*"}, log))
	defer srv.Close()

	conn := dial(t, srv, "ann")
	waitForClients(t, hub, 1)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, gorillaWS.IsCloseError(err, gorillaWS.CloseNormalClosure), "expected normal close, got %v", err)
	assert.False(t, hub.Register(&Client{accountID: "late"}), "stopped hub must refuse new clients")
}
