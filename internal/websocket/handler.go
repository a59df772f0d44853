package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one realtime connection until the peer goes away. An empty
// sessionID leaves the client unattached until it sends a join event.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID, role string) {
	client := NewClient(hub, conn, sessionID, role)
	hub.Register(client)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
