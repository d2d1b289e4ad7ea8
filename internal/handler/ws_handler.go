package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/service"
	ws "github.com/stemsi/qbank-composer/internal/websocket"
)

const (
	wsKeepAlive = 30 * time.Second
	// Clients only send small action envelopes.
	wsReadLimit = 4096
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// EventSubscriber opens a Pub/Sub subscription for one template.
type EventSubscriber interface {
	Subscribe(ctx context.Context, templateID uuid.UUID) *redis.PubSub
}

// WSHandler streams composition events to authoring clients.
type WSHandler struct {
	events             EventSubscriber
	compositionService *service.CompositionService
	log                zerolog.Logger
	upgrader           websocket.Upgrader
}

func NewWSHandler(events EventSubscriber, compositionService *service.CompositionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		events:             events,
		compositionService: compositionService,
		log:                log.With().Str("component", "ws_handler").Logger(),
		upgrader:           buildUpgrader(allowedOrigins),
	}
}

// CompositionEvents godoc
// WS /ws/v1/templates/:id/events
// Upgrades to WebSocket and forwards the template's composition events.
func (h *WSHandler) CompositionEvents(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	if _, _, err := h.compositionService.Sections(c.Request.Context(), id); err != nil {
		failWith(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn, wsReadLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsLog := h.log.With().Str("template_id", id.String()).Logger()

	pubsub := h.events.Subscribe(ctx, id)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe failed")
		_ = ws.WriteError(conn, "event stream unavailable")
		return
	}
	events := pubsub.Channel()

	if err := ws.WriteTyped(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, TemplateID: id.String()}); err != nil {
		return
	}
	wsLog.Info().Msg("Client attached to composition events")

	// All writes happen on this goroutine; the reader only reports actions.
	actions := make(chan ws.Action, 8)
	go func() {
		defer close(actions)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			select {
			case actions <- msg.Action:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepAlive := time.NewTicker(wsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case action, open := <-actions:
			if !open {
				wsLog.Debug().Msg("Connection closed")
				return
			}
			switch action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			default:
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}

		case msg, open := <-events:
			if !open {
				return
			}
			// Forward raw JSON directly, no deserialization needed.
			err = ws.WriteRaw(conn, []byte(msg.Payload))

		case <-keepAlive.C:
			err = ws.WritePing(conn)
		}

		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed, closing stream")
			return
		}
	}
}
