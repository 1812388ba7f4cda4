package handler

import (
	"context"

	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/service"
	internalWS "conflict-resolution-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamSocketHandler serves live stream records over websockets.
type StreamSocketHandler struct {
	streams service.IStreamService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewStreamSocketHandler(streams service.IStreamService, hub *internalWS.Hub, log logger.ILogger) *StreamSocketHandler {
	return &StreamSocketHandler{
		streams: streams,
		hub:     hub,
		logger:  log,
	}
}

func (h *StreamSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/streams/:id", h.ServeWs)
}

// ServeWs upgrades the request after checking the record exists, so unknown
// ids get a plain 404.
func (h *StreamSocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	id := c.Params("id")
	if _, err := h.streams.Read(c.UserContext(), id); err != nil {
		return err
	}
	driving := c.QueryBool("driving", false)

	return websocket.New(func(conn *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		sub, err := h.streams.Subscribe(ctx, id, driving)
		if err != nil {
			cancel()
			h.logger.Warn("StreamSocketHandler", "Subscribe failed", map[string]interface{}{
				"stream_id": id,
				"error":     err.Error(),
			})
			conn.Close()
			return
		}

		h.logger.Info("StreamSocketHandler", "Starting WebSocket session", map[string]interface{}{
			"stream_id": id,
			"driving":   driving,
		})
		internalWS.ServeStream(h.hub, conn, sub, cancel)
		h.logger.Info("StreamSocketHandler", "WebSocket session ended", map[string]interface{}{"stream_id": id})
	})(c)
}
