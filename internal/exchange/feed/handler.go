package feed

import (
	"net/http"
	"strings"

	gorillaWS "github.com/gorilla/websocket"

	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/jwtverify"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

// Handler upgrades GET /exchanges/feed and subscribes the connection to the
// events of the account named by the session token. Browsers cannot set
// headers on a websocket handshake, so the token may also arrive as ?token=.
func Handler(hub *Hub, jwtSecret string, allowedOrigins []string, log *logger.Logger) http.HandlerFunc {
	secret := []byte(jwtSecret)
	upgrader := gorillaWS.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing session token", commonhttp.TraceIDFromContext(r.Context()))
			return
		}
		claims, err := jwtverify.ParseToken(token, secret)
		if err != nil {
			log.WithFields(r.Context(), logger.Fields{
				"action": "feed_auth_failed",
			}).Warnf("feed auth failed: %v", err)
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "invalid token", commonhttp.TraceIDFromContext(r.Context()))
			return
		}
		accountID := claims.AccountID

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithFields(r.Context(), logger.Fields{
				"account_id": accountID,
				"action":     "feed_upgrade_failed",
			}).Warnf("feed upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, accountID, log)
		if !hub.Register(client) {
			_ = conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseGoingAway, "shutting down"))
			conn.Close()
			return
		}
		client.Start()
	}
}

func sessionToken(r *http.Request) string {
	if raw := r.Header.Get("Authorization"); strings.HasPrefix(raw, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
