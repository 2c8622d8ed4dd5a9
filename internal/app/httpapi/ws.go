package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PSM-Network/social_layer/internal/app/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS middleware upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventsWS streams ledger notifications over a websocket. Each message is one
// JSON-encoded event; an optional ?type= filter narrows the stream.
func (h *handler) eventsWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	feed := make(chan events.Event, 64)
	handlerFn := func(evt events.Event) {
		select {
		case feed <- evt:
		default:
			// Slow consumer; drop rather than block emitters.
		}
	}

	var unsubscribe func()
	if kind := r.URL.Query().Get("type"); kind != "" {
		filter := events.Type(kind)
		unsubscribe = h.app.Events.SubscribeFiltered(func(evt events.Event) bool {
			return evt.Type == filter
		}, handlerFn)
	} else {
		unsubscribe = h.app.Events.Subscribe(handlerFn)
	}
	defer unsubscribe()

	// Reader loop only watches for the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-feed:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
