package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tutorui/internal/genui"
)

const (
	interactionWSWriteWait = 10 * time.Second
	interactionWSPongWait  = 60 * time.Second
	interactionWSPingEvery = (interactionWSPongWait * 9) / 10
)

var interactionWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type interactionWSInbound struct {
	Type  string                  `json:"type"`
	Event *genui.InteractionEvent `json:"event,omitempty"`
}

type interactionWSOutbound struct {
	Type            string                 `json:"type"`
	Acknowledgement *genui.Acknowledgement `json:"acknowledgement,omitempty"`
	Code            string                 `json:"code,omitempty"`
	Message         string                 `json:"message,omitempty"`
}

// InteractionWS handles GET /v1/events/ws. Each "event" frame is answered
// with an "ack" frame carrying the acknowledgement, or "noop".
func (h *Handler) InteractionWS(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := interactionWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(interactionWSPongWait)); err != nil {
		h.log.Warn("interaction ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(interactionWSPongWait))
	})

	g, ctx := errgroup.WithContext(r.Context())
	writeCh := make(chan interactionWSOutbound, 32)

	g.Go(func() error {
		ticker := time.NewTicker(interactionWSPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(interactionWSWriteWait)); err != nil {
					return err
				}
				if err := conn.WriteJSON(out); err != nil {
					return err
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(interactionWSWriteWait)); err != nil {
					return err
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return err
				}
			}
		}
	})

	// Closing the connection unblocks the reader once either side stops.
	g.Go(func() error {
		<-ctx.Done()
		_ = conn.Close()
		return nil
	})

	g.Go(func() error {
		for {
			var in interactionWSInbound
			if err := conn.ReadJSON(&in); err != nil {
				return err
			}
			out := h.handleInteractionFrame(ctx, userID, in)
			select {
			case writeCh <- out:
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil && !isExpectedWSClose(err) {
		h.log.Debug("interaction ws closed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) handleInteractionFrame(ctx context.Context, userID string, in interactionWSInbound) interactionWSOutbound {
	switch strings.ToLower(strings.TrimSpace(in.Type)) {
	case "":
		return interactionWSOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"}
	case "ping":
		return interactionWSOutbound{Type: "pong"}
	case "event":
		if in.Event == nil {
			return interactionWSOutbound{Type: "error", Code: "invalid_argument", Message: "event is required"}
		}
		ack := h.svc.HandleEvent(ctx, userID, *in.Event)
		if ack == nil {
			return interactionWSOutbound{Type: "noop"}
		}
		return interactionWSOutbound{Type: "ack", Acknowledgement: ack}
	default:
		return interactionWSOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type " + in.Type}
	}
}

func isExpectedWSClose(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
