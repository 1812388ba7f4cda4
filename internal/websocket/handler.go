package websocket

import (
	"context"
	"encoding/json"

	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/pkg/metrics"
	"conflict-resolution-be/pkg/textstream"

	"github.com/gofiber/websocket/v2"
)

const transportLabel = "websocket"

// ServeStream relays sub to the connection until the stream reaches a
// terminal status or the peer disconnects. cancel ends the subscription.
func ServeStream(hub *Hub, c *websocket.Conn, sub *textstream.Subscription, cancel context.CancelFunc) {
	defer cancel()

	client := &Client{Hub: hub, Conn: c, StreamID: sub.ID, Driving: sub.Driving, Send: make(chan []byte, 256)}
	if !hub.add(client) {
		c.Close()
		return
	}

	metrics.ActiveSubscribers.WithLabelValues(transportLabel).Inc()
	defer metrics.ActiveSubscribers.WithLabelValues(transportLabel).Dec()

	go client.forward(sub)
	go client.writePump()
	client.readPump()
	hub.remove(client)
}

// forward turns snapshots into frames. When the subscription ends the client
// is unregistered, which makes writePump send the close frame.
func (c *Client) forward(sub *textstream.Subscription) {
	defer c.Hub.remove(c)

	for snap := range sub.Updates {
		data, err := json.Marshal(dto.StreamMessage{
			Type: "stream",
			Data: dto.StreamBodyResponse{
				Id:         snap.ID,
				Text:       snap.Text,
				Status:     snap.Status.String(),
				Generation: snap.Generation,
			},
			Driving:  sub.Driving,
			Finished: sub.ActionFinished(snap),
		})
		if err != nil {
			continue
		}

		if !c.enqueue(data) {
			return
		}
	}
}
