package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// readWait must exceed the server keep-alive interval so a pong always
	// lands before the deadline.
	readWait = 5 * time.Minute
)

// Prepare arms the read deadline and extends it on every pong, so a client
// that only answers keep-alive pings stays attached.
func Prepare(conn *websocket.Conn, readLimit int64) {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
}

// WriteTyped sends a typed response payload.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteRaw forwards an already encoded composition event.
func WriteRaw(conn *websocket.Conn, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// WritePing sends a control ping.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON decodes the next client message and refreshes the read deadline.
func ReadJSON(conn *websocket.Conn, v any) error {
	if err := conn.ReadJSON(v); err != nil {
		return err
	}
	return conn.SetReadDeadline(time.Now().Add(readWait))
}
