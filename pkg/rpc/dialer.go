package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erc7824/aa-signers/pkg/log"
)

// Dialer is a request/response connection to a gateway.
type Dialer interface {
	// Dial connects to url and returns once the connection is up. The
	// connection is served in the background; handleClosure runs once when it
	// ends, with the first error observed, if any.
	Dial(ctx context.Context, url string, handleClosure func(err error)) error
	IsConnected() bool
	// Call sends req and blocks until the matching response arrives, ctx is
	// done, or the connection closes.
	Call(ctx context.Context, req *Request) (*Response, error)
	// EventCh delivers responses that match no pending request.
	EventCh() <-chan *Response
}

type dialCtx struct {
	ctx  context.Context
	conn *websocket.Conn
}

// WebsocketDialerConfig tunes a WebsocketDialer.
type WebsocketDialerConfig struct {
	HandshakeTimeout time.Duration `env:"LIT_WS_HANDSHAKE_TIMEOUT" env-default:"5s" validate:"gt=0"`
	PingInterval     time.Duration `env:"LIT_WS_PING_INTERVAL" env-default:"15s" validate:"gt=0"`
	// PingRequestID is reserved for keepalive pings.
	PingRequestID uint64 `env:"LIT_WS_PING_REQUEST_ID" env-default:"1"`
	EventChanSize int    `env:"LIT_WS_EVENT_CHAN_SIZE" env-default:"32" validate:"gte=0"`
}

var DefaultWebsocketDialerConfig = WebsocketDialerConfig{
	HandshakeTimeout: 5 * time.Second,
	PingInterval:     15 * time.Second,
	PingRequestID:    1,
	EventChanSize:    32,
}

// WebsocketDialer is a Dialer over a single gorilla/websocket connection.
// Responses are routed to callers by request ID.
type WebsocketDialer struct {
	cfg           WebsocketDialerConfig
	dialCtx       *dialCtx
	eventCh       chan *Response
	responseSinks map[uint64]chan *Response
	mu            sync.RWMutex // guards dialCtx, eventCh and responseSinks
	writeMu       sync.Mutex
}

var _ Dialer = (*WebsocketDialer)(nil)

func NewWebsocketDialer(cfg WebsocketDialerConfig) *WebsocketDialer {
	return &WebsocketDialer{
		cfg:           cfg,
		eventCh:       make(chan *Response, cfg.EventChanSize),
		responseSinks: make(map[uint64]chan *Response),
	}
}

// Dial opens the websocket and starts the close watcher, the read loop and
// the ping loop. Cancelling ctx closes the connection.
func (d *WebsocketDialer) Dial(parentCtx context.Context, url string, handleClosure func(err error)) error {
	if d.IsConnected() {
		return ErrAlreadyConnected
	}

	wsDialer := websocket.Dialer{
		HandshakeTimeout:  d.cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	conn, _, err := wsDialer.DialContext(parentCtx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDialingWebsocket, err)
	}

	childCtx, cancel := context.WithCancel(parentCtx)
	var wg sync.WaitGroup
	wg.Add(3)

	var (
		closureErr   error
		closureErrMu sync.Mutex
	)
	stop := func(err error) {
		closureErrMu.Lock()
		if err != nil && closureErr == nil {
			closureErr = err
		}
		closureErrMu.Unlock()

		cancel()
		wg.Done()
	}

	lg := log.FromContext(parentCtx).WithName("ws-dialer").WithKV("url", url)

	d.mu.Lock()
	d.dialCtx = &dialCtx{ctx: childCtx, conn: conn}
	d.eventCh = make(chan *Response, d.cfg.EventChanSize)
	d.mu.Unlock()

	go d.closeOnContextDone(childCtx, conn, stop)
	go d.readMessages(childCtx, conn, lg, stop)
	go d.pingPeriodically(childCtx, lg, stop)

	go func() {
		wg.Wait()

		closureErrMu.Lock()
		defer closureErrMu.Unlock()
		handleClosure(closureErr)
	}()

	lg.Debug("connected")
	return nil
}

func (d *WebsocketDialer) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.dialCtx != nil && d.dialCtx.ctx.Err() == nil
}

func (d *WebsocketDialer) closeOnContextDone(ctx context.Context, conn *websocket.Conn, stop func(err error)) {
	<-ctx.Done()

	// Sinks are dropped, not closed: the read loop may still hold one.
	d.mu.Lock()
	d.responseSinks = make(map[uint64]chan *Response)
	d.mu.Unlock()

	stop(conn.Close())
}

func (d *WebsocketDialer) readMessages(ctx context.Context, conn *websocket.Conn, lg log.Logger, stop func(err error)) {
	for {
		_, data, err := conn.ReadMessage()
		if ctx.Err() != nil {
			lg.Debug("read loop stopped")
			stop(nil)
			return
		}
		if _, ok := err.(net.Error); ok {
			lg.Error("websocket connection timeout", "error", err)
			stop(fmt.Errorf("%w: %w", ErrConnectionTimeout, err))
			return
		}
		if err != nil {
			lg.Error("websocket read failed", "error", err)
			stop(fmt.Errorf("%w: %w", ErrReadingMessage, err))
			return
		}

		var res Response
		if err := json.Unmarshal(data, &res); err != nil {
			lg.Warn("dropping malformed message", "message", string(data), "error", err)
			continue
		}

		d.mu.RLock()
		sink, ok := d.responseSinks[res.Res.RequestID]
		if !ok {
			sink = d.eventCh
		}
		d.mu.RUnlock()

		select {
		case <-ctx.Done():
			stop(nil)
			return
		case sink <- &res:
		default:
			lg.Warn("response channel full, dropping message", "requestID", res.Res.RequestID, "method", res.Res.Method)
		}
	}
}

// Call is safe for concurrent use as long as request IDs are unique among
// in-flight calls.
func (d *WebsocketDialer) Call(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	id := req.Req.RequestID

	d.mu.Lock()
	if d.dialCtx == nil || d.dialCtx.ctx.Err() != nil {
		d.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := d.dialCtx.conn
	connCtx := d.dialCtx.ctx
	sink := make(chan *Response, 1)
	d.responseSinks[id] = sink
	d.mu.Unlock()

	release := func() {
		d.mu.Lock()
		delete(d.responseSinks, id)
		d.mu.Unlock()
	}

	data, err := json.Marshal(req)
	if err != nil {
		release()
		return nil, fmt.Errorf("%w: %w", ErrMarshalingRequest, err)
	}

	d.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	d.writeMu.Unlock()
	if err != nil {
		release()
		return nil, fmt.Errorf("%w: %w", ErrSendingRequest, err)
	}

	var res *Response
	select {
	case <-ctx.Done():
	case <-connCtx.Done():
	case res = <-sink:
	}
	release()

	if res == nil {
		return nil, fmt.Errorf("%w for request %d", ErrNoResponse, id)
	}
	return res, nil
}

func (d *WebsocketDialer) pingPeriodically(ctx context.Context, lg log.Logger, stop func(err error)) {
	ticker := time.NewTicker(d.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Debug("ping loop stopped")
			stop(nil)
			return
		case <-ticker.C:
			req := NewRequest(NewPayload(d.cfg.PingRequestID, PingMethod.String(), nil))
			res, err := d.Call(ctx, &req)
			if err != nil {
				if ctx.Err() != nil {
					stop(nil)
					return
				}
				lg.Error("ping failed", "error", err)
				stop(fmt.Errorf("%w: %w", ErrSendingPing, err))
				return
			}
			if res.Res.Method != PongMethod.String() {
				lg.Warn("unexpected response to ping", "method", res.Res.Method)
			}
		}
	}
}

// EventCh returns the channel of the current connection. A new channel is
// created on every Dial.
func (d *WebsocketDialer) EventCh() <-chan *Response {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.eventCh
}
