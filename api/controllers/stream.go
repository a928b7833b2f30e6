package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kurumart/kurumart-backend/api/responses"
	"github.com/kurumart/kurumart-backend/internal/bidding"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The endpoint sits behind bearer auth; origin policy is enforced by
		// the CORS layer for browser clients.
		return true
	},
}

// StreamEvent is the wire form of a coordinator change notification.
type StreamEvent struct {
	Kind       string          `json:"kind"`
	Vehicle    *VehicleView    `json:"vehicle,omitempty"`
	Group      *GroupStateView `json:"group,omitempty"`
	Connection string          `json:"connection,omitempty"`
}

// Stream upgrades the request to a websocket and pushes coordinator change
// events until the client goes away.
func Stream(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, cancel, err := engine.Subscribe(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "subscribe to bid events"))
			return
		}

		conn, err := streamUpgrader.Upgrade(w, r, nil)
		if err != nil {
			cancel()
			// Upgrade already wrote the HTTP error response.
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "stream.upgrade.failed")
			}
			return
		}

		go func() {
			defer cancel()
			defer conn.Close()

			// Drain client frames so close/pong handling works; the stream
			// is push-only.
			go func() {
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						cancel()
						return
					}
				}
			}()

			ticker := time.NewTicker(streamPingPeriod)
			defer ticker.Stop()

			for {
				select {
				case event, ok := <-events:
					if !ok {
						deadline := time.Now().Add(streamWriteWait)
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
						return
					}
					conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
					if err := conn.WriteJSON(streamEvent(event)); err != nil {
						return
					}
				case <-ticker.C:
					deadline := time.Now().Add(streamWriteWait)
					if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
						return
					}
				}
			}
		}()
	}
}

func streamEvent(event bidding.Event) StreamEvent {
	out := StreamEvent{Kind: string(event.Kind)}
	if event.Vehicle != nil {
		view := vehicleView(*event.Vehicle)
		out.Vehicle = &view
	}
	if event.Group != nil {
		view := groupStateView(*event.Group)
		out.Group = &view
	}
	if event.Connection != "" {
		out.Connection = string(event.Connection)
	}
	return out
}
