// Package obs is a minimal obs-websocket v5 client covering the two calls
// this server needs: reading and writing a source filter's settings.
//
// Runtime model
//   - One websocket session per process, created once at startup.
//   - Concurrent requests multiplex on the session: writes are serialized,
//     responses are matched back to callers by request id.
//   - No reconnect. A broken session stays broken until process restart;
//     every call fails fast with ErrNotConnected.
package obs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected signals the control session is down (startup connect
// failed, or the transport dropped).
var ErrNotConnected = errors.New("obs: not connected")

// RequestError is a request the OBS instance rejected (unknown source,
// missing filter, invalid settings, ...).
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("obs: %s failed with code %d", e.RequestType, e.Code)
	}
	return fmt.Sprintf("obs: %s failed with code %d: %s", e.RequestType, e.Code, e.Comment)
}

// Options configures a Client.
type Options struct {
	// URL is the obs-websocket endpoint, e.g. "ws://127.0.0.1:4455".
	URL string
	// Password for the Identify handshake; empty when auth is disabled.
	Password string
	// RequestTimeout bounds each request round-trip. Zero disables the bound.
	RequestTimeout time.Duration
	// HandshakeTimeout bounds the dial + Hello/Identify exchange. Default 10s.
	HandshakeTimeout time.Duration
}

// Client is the process-wide control session.
// All methods are safe for concurrent use.
type Client struct {
	log  *zap.Logger
	opts Options

	connected atomic.Bool

	writeMu sync.Mutex
	conn    *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan *responsePayload
}

// NewClient builds a disconnected client; call Connect to establish the session.
func NewClient(log *zap.Logger, opts Options) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Client{
		log:     log.Named("obs"),
		opts:    opts,
		pending: make(map[string]chan *responsePayload),
	}
}

// Connected reports whether the session is up.
func (c *Client) Connected() bool { return c.connected.Load() }

// Connect dials the endpoint and performs the Hello/Identify handshake.
// Intended to be called once at startup; on error the client remains
// disconnected and the caller decides whether that is fatal.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
		Subprotocols:     []string{"obswebsocket.json"},
	}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	if err := c.identify(conn); err != nil {
		conn.Close()
		return err
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.connected.Store(true)

	c.log.Info("control session established", zap.String("url", c.opts.URL))
	go c.readLoop(conn)
	return nil
}

// identify runs the Hello -> Identify -> Identified exchange on a fresh
// connection, answering the auth challenge when the server presents one.
func (c *Client) identify(conn *websocket.Conn) error {
	deadline := time.Now().Add(c.opts.HandshakeTimeout)
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	var hello helloData
	if err := readMessage(conn, opHello, &hello); err != nil {
		return fmt.Errorf("hello: %w", err)
	}

	ident := identifyData{RPCVersion: 1, EventSubscriptions: 0}
	if hello.Authentication != nil {
		if c.opts.Password == "" {
			return errors.New("identify: server requires authentication but no password is configured")
		}
		ident.Authentication = authResponse(c.opts.Password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}
	if err := writeMessage(conn, opIdentify, ident); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	var identified identifiedData
	if err := readMessage(conn, opIdentified, &identified); err != nil {
		return fmt.Errorf("identified: %w", err)
	}
	return nil
}

// Close tears down the session. Pending calls fail with ErrNotConnected.
func (c *Client) Close() error {
	c.connected.Store(false)
	c.writeMu.Lock()
	conn := c.conn
	c.conn = nil
	c.writeMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// call performs one request round-trip. The response payload is returned
// raw; callers decode their own responseData shape.
func (c *Client) call(ctx context.Context, requestType string, data any) (json.RawMessage, error) {
	if !c.connected.Load() {
		return nil, ErrNotConnected
	}

	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	ch := make(chan *responsePayload, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(opRequest, requestPayload{
		RequestType: requestType,
		RequestID:   id,
		RequestData: data,
	}); err != nil {
		return nil, fmt.Errorf("obs: send %s: %w", requestType, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		if !resp.RequestStatus.Result {
			return nil, &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		return resp.ResponseData, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("obs: %s: %w", requestType, ctx.Err())
	}
}

func (c *Client) send(op int, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return writeMessage(c.conn, op, data)
}

// readLoop dispatches responses to waiting callers until the transport
// fails, then fails everything still pending.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			conn.Close()
			c.log.Warn("control session closed", zap.Error(err))
			break
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.log.Warn("discarding malformed frame", zap.Error(err))
			continue
		}
		if env.Op != opRequestResponse {
			continue
		}

		var resp responsePayload
		if err := json.Unmarshal(env.D, &resp); err != nil {
			c.log.Warn("discarding malformed response", zap.Error(err))
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.RequestID]
		delete(c.pending, resp.RequestID)
		c.pendingMu.Unlock()
		if ok {
			ch <- &resp
		}
	}

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	c.pendingMu.Unlock()
}

func writeMessage(conn *websocket.Conn, op int, data any) error {
	d, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Op: op, D: d})
}

func readMessage(conn *websocket.Conn, wantOp int, dst any) error {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	if env.Op != wantOp {
		return fmt.Errorf("unexpected opcode %d (want %d)", env.Op, wantOp)
	}
	return json.Unmarshal(env.D, dst)
}
