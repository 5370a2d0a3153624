package net

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"shoulderbird/server/internal/hub"
	"shoulderbird/server/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *nethttp.Request) bool {
		return true
	},
}

func serveWS(gameHub *hub.Hub, logger telemetry.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("websocket upgrade failed: %v", err)
			return
		}

		joined := gameHub.Join(conn, r.URL.Query().Get("player"))
		data, err := json.Marshal(joined)
		if err != nil {
			logger.Printf("failed to marshal join message: %v", err)
			gameHub.Disconnect(joined.SessionID)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			gameHub.Disconnect(joined.SessionID)
			return
		}

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				gameHub.Disconnect(joined.SessionID)
				return
			}

			var msg hub.ClientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				logger.Printf("discarding malformed message from %s: %v", joined.SessionID, err)
				continue
			}

			switch msg.Type {
			case "pose":
				gameHub.UpdatePose(joined.SessionID, msg.NormalizedShoulderY, msg.HasPose)
			case "resize":
				gameHub.Resize(joined.SessionID, msg.Width, msg.Height)
			case "heartbeat":
				gameHub.SendHeartbeatAck(joined.SessionID, msg.SentAt)
			default:
				logger.Printf("unknown message type %q from %s", msg.Type, joined.SessionID)
			}
		}
	}
}
