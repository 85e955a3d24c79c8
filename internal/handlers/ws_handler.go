package handlers

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/notify"
	"github.com/gin-gonic/gin"
)

const wsWriteTimeout = 5 * time.Second

// StreamHandler upgrades a request to a websocket and relays hub events to
// the connected user. Delivery is best-effort: a slow consumer misses
// events rather than blocking the hub.
type StreamHandler struct {
	hub            *notify.Hub
	allowedOrigins []string
}

// NewStreamHandler creates a new StreamHandler instance.
func NewStreamHandler(hub *notify.Hub, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
	}
}

// Stream handles GET /api/v1/stream.
func (h *StreamHandler) Stream(c *gin.Context) {
	log := middleware.GetLogger(c)
	actor := middleware.GetActor(c)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		if log != nil {
			log.Warn("Websocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	sub := h.hub.Subscribe(actor.ID)
	defer h.hub.Unsubscribe(sub)

	if log != nil {
		log.Info("Stream connected", map[string]interface{}{
			"user_id": actor.ID.String(),
		})
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Drain reads so pings are answered and a client close ends the stream.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case event := <-sub.C:
			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			writeCancel()
			if err != nil {
				if log != nil {
					log.Warn("Stream write failed", map[string]interface{}{
						"user_id": actor.ID.String(),
						"error":   err.Error(),
					})
				}
				return
			}
		case err := <-readErr:
			if log != nil {
				log.Info("Stream disconnected", map[string]interface{}{
					"user_id": actor.ID.String(),
					"reason":  err.Error(),
				})
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}
