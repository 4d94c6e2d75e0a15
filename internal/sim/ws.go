package sim

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sova-grid/internal/protocol"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// Any origin; the sim is a local tool.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves the websocket endpoint at /ws and a plain /health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The first frame must be a hello naming the peer.
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	hello, err := protocol.Decode(data)
	if err != nil || hello.Type != protocol.TypeHello {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected hello"))
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := newClient(hello.Peer, s.log)
	s.attach(c)
	defer s.detach(c)
	s.log.Info("peer connected", "peer", c.peer, "remote", r.RemoteAddr)

	errCh := make(chan error, 2)
	go func() { errCh <- s.pumpOut(ctx, c, conn) }()
	go func() { errCh <- s.pumpIn(ctx, c, conn) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.log.Debug("peer connection ended", "peer", c.peer, "err", err)
		}
	}
	s.log.Info("peer disconnected", "peer", c.peer)
}

func (s *Server) pumpOut(ctx context.Context, c *client, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case env := <-c.out:
			b, err := protocol.Encode(env)
			if err != nil {
				return err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
		}
	}
}

func (s *Server) pumpIn(ctx context.Context, c *client, conn *websocket.Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := protocol.Decode(data)
		if err != nil {
			s.log.Warn("bad envelope", "peer", c.peer, "err", err)
			continue
		}
		switch env.Type {
		case protocol.TypeCommand:
			ack := protocol.Envelope{Type: protocol.TypeAck, ID: env.ID}
			if err := s.dispatchFrom(c, *env.Command); err != nil {
				ack.Error = err.Error()
			}
			c.sendWait(ack)
		case protocol.TypeEvent:
			s.relay(c, *env.Event)
		}
	}
}
