// Package remote is the network connection to a performance server.
//
// One websocket carries JSON envelopes both ways. Every command is tagged with a fresh
// request id and Send blocks until the server acknowledges that id, so a caller that awaits
// each Send gets strictly ordered execution without timing guesses.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"sova-grid/internal/protocol"
)

var ErrClosed = errors.New("remote: connection closed")

// RemoteError is a command the server refused.
type RemoteError struct {
	Command protocol.CommandKind
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server rejected %s: %s", e.Command, e.Message)
}

type Options struct {
	Peer   string
	Logger *slog.Logger
	// AckTimeout bounds the wait for one acknowledgement. Zero means 10s.
	AckTimeout time.Duration
	Dialer     *websocket.Dialer
}

type Client struct {
	conn       *websocket.Conn
	log        *slog.Logger
	ackTimeout time.Duration

	out    chan protocol.Envelope
	events chan protocol.Event

	mu      sync.Mutex
	pending map[string]chan string

	cancel context.CancelFunc
	closed chan struct{}
	done   chan struct{}
	err    error
}

// URL turns "host:port", "http://host" or "ws://host/ws" into the websocket endpoint.
func URL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("remote: missing server address")
	}
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("remote: bad server address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("remote: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("remote: bad server address %q", addr)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Dial connects and announces the peer name. The first event delivered is a synthetic
// connection event; the server's initial scene follows.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	endpoint, err := URL(addr)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = 10 * time.Second
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", endpoint, err)
	}
	hello, _ := protocol.Encode(protocol.Envelope{Type: protocol.TypeHello, Peer: opts.Peer})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("remote: hello: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:       conn,
		log:        opts.Logger.With("server", endpoint),
		ackTimeout: opts.AckTimeout,
		out:        make(chan protocol.Envelope, 64),
		events:     make(chan protocol.Event, 256),
		pending:    map[string]chan string{},
		cancel:     cancel,
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.events <- protocol.Event{Kind: protocol.EvConnection, Connected: true}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return c.readPump(gctx) })
	g.Go(func() error { return c.writePump(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.Close()
		return nil
	})
	go func() {
		err := g.Wait()
		c.shutdown(err)
	}()
	c.log.Info("connected", "peer", opts.Peer)
	return c, nil
}

func (c *Client) readPump(ctx context.Context) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("bad envelope", "err", err)
			continue
		}
		switch env.Type {
		case protocol.TypeAck:
			c.resolve(env.ID, env.Error)
		case protocol.TypeEvent:
			select {
			case c.events <- *env.Event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (c *Client) writePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil
		case env := <-c.out:
			b, err := protocol.Encode(env)
			if err != nil {
				return err
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
		}
	}
}

func (c *Client) resolve(id, errMsg string) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		c.log.Debug("ack for unknown request", "id", id)
		return
	}
	ch <- errMsg
}

// shutdown runs once both pumps stopped: pending sends fail and the event stream ends with
// a disconnected event.
func (c *Client) shutdown(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	close(c.closed)

	msg := ""
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		msg = err.Error()
		c.log.Warn("connection lost", "err", err)
	} else {
		c.log.Info("disconnected")
	}
	select {
	case c.events <- protocol.Event{Kind: protocol.EvConnection, Connected: false, Message: msg}:
	default:
		c.log.Warn("event buffer full; disconnect event dropped")
	}
	close(c.events)
	close(c.done)
}

// Send delivers cmd and waits for its acknowledgement.
func (c *Client) Send(ctx context.Context, cmd protocol.Command) error {
	id := uuid.NewString()
	reply := make(chan string, 1)
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	env := protocol.Envelope{Type: protocol.TypeCommand, ID: id, Command: &cmd}
	select {
	case c.out <- env:
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	t := time.NewTimer(c.ackTimeout)
	defer t.Stop()
	select {
	case msg := <-reply:
		if msg != "" {
			return &RemoteError{Command: cmd.Kind, Message: msg}
		}
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return fmt.Errorf("remote: no acknowledgement for %s within %s", cmd.Kind, c.ackTimeout)
	}
}

// Publish sends a peer event (selection or editing focus) to the other clients.
func (c *Client) Publish(ev protocol.Event) error {
	select {
	case c.out <- protocol.Envelope{Type: protocol.TypeEvent, Event: &ev}:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// Events is closed after the final disconnected event.
func (c *Client) Events() <-chan protocol.Event { return c.events }

// Done is closed once the connection is fully torn down.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	c.cancel()
	<-c.done
	return nil
}
