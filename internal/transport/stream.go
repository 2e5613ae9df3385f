package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rpggio/sigtrack/internal/engine"
)

const streamWriteTimeout = 5 * time.Second

// handleStream pushes the current snapshot, then one per render tick, until
// the client goes away or the instance is destroyed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.instance(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.deps.OriginPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "instance_id", inst.ID(), "error", err)
		return
	}
	defer conn.CloseNow()

	// Only the newest snapshot matters; a slow client skips stale ones.
	latest := make(chan engine.Snapshot, 1)
	cancel := inst.Subscribe(func(snap engine.Snapshot) {
		select {
		case <-latest:
		default:
		}
		select {
		case latest <- snap:
		default:
		}
	})
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	s.logger.Debug("stream client connected", "instance_id", inst.ID())

	if err := writeSnapshot(ctx, conn, inst.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stream client disconnected", "instance_id", inst.ID())
			return
		case <-inst.Done():
			conn.Close(websocket.StatusGoingAway, "instance destroyed")
			return
		case snap := <-latest:
			if err := writeSnapshot(ctx, conn, snap); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
