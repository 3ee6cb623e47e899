package handlers

import (
	"net/http"
	"time"

	httpHandler "safr-server/handlers/http"
	"safr-server/logging"
	"safr-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WSHandler serves the per-user ranking event feed.
type WSHandler struct {
	mgr      *ws.Manager
	verifier httpHandler.TokenVerifier
}

func NewWSHandler(mgr *ws.Manager, verifier httpHandler.TokenVerifier) *WSHandler {
	return &WSHandler{mgr: mgr, verifier: verifier}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleRankingFeed upgrades to websocket and pushes the caller's ranking events.
// GET /ws/rankings (Authorization: Bearer <token> or ?token=<token>)
func (h *WSHandler) HandleRankingFeed(c *gin.Context) {
	token := httpHandler.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		// browsers cannot set headers on websocket requests
		token = c.Query("token")
	}
	user, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn().Err(err).Uint("user_id", user.ID).Msg("websocket upgrade failed")
		return
	}
	client := h.mgr.Register(user.ID, conn)
	logging.Info().Uint("user_id", user.ID).Msg("ranking feed connected")

	done := make(chan struct{})
	defer func() {
		close(done)
		h.mgr.Unregister(user.ID, client)
		logging.Info().Uint("user_id", user.ID).Msg("ranking feed disconnected")
	}()

	go keepAlive(client, done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The feed is push only; reads just drive control frames and detect close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Uint("user_id", user.ID).Msg("ranking feed read error")
			}
			return
		}
	}
}

// GetFeedStats GET /ws/stats
func (h *WSHandler) GetFeedStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": h.mgr.Count()})
}

func keepAlive(client *ws.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				return
			}
		}
	}
}
