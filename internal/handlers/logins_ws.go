package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedReadLimit  = 1024
	feedPongWait   = 90 * time.Second
	feedPingPeriod = 30 * time.Second
	feedWriteWait  = 10 * time.Second
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS for the websocket is handled at the HTTP layer; the admin key
	// authorizes the connection.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LoginFeed streams login events to an admin over a websocket. The admin key
// comes in the adminKey query parameter.
func (h *SyncHandler) LoginFeed(w http.ResponseWriter, r *http.Request) {
	feed := h.svc.Feed()
	if feed == nil {
		writeError(w, http.StatusServiceUnavailable, "login feed not available")
		return
	}
	if !h.authorizeAdmin(r.URL.Query().Get("adminKey")) {
		writeError(w, http.StatusUnauthorized, "invalid admin key")
		return
	}

	events, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reader: only pongs and close frames are expected from the admin.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(feedReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				h.log.WithError(err).Debug("login feed write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
