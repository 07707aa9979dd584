package events

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single frame write may take before the
// connection is considered dead.
const writeWait = 10 * time.Second

// wireEvent is the JSON shape written to a websocket client. Data is
// re-marshaled generically since EventData implementations carry no
// common field set a client could otherwise rely on.
type wireEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	TabID     string    `json:"tab_id"`
	Data      EventData `json:"data"`
}

// upgrader is permissive on Origin: the subscribe transport is meant for a
// host UI process on the same machine or trusted network, not a public
// browser endpoint.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Stream is anything that can be drained for a single subscriber's events,
// matching the channel half of the value returned by a tab's Subscribe.
type Stream <-chan *Event

// ServeWS upgrades an HTTP request to a websocket connection and forwards
// every event taken from events to it as a JSON text frame, until either
// the stream closes or the client disconnects. unsubscribe is called on
// return so the caller's subscription is always torn down.
func ServeWS(w http.ResponseWriter, r *http.Request, stream Stream, unsubscribe func()) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer unsubscribe()

	go drainClient(conn)

	for ev := range stream {
		wire := wireEvent{Type: ev.Type, Timestamp: ev.Timestamp, RunID: ev.RunID, TabID: ev.TabID, Data: ev.Data}
		payload, err := json.Marshal(wire)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	return nil
}

// drainClient discards anything the client sends (this is a one-way event
// feed) purely to notice the connection closing, which unblocks the send
// loop in ServeWS via the read error it otherwise wouldn't see until write.
func drainClient(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}
