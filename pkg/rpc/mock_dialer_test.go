package rpc_test

import (
	"context"
	"sync"

	"github.com/erc7824/aa-signers/pkg/rpc"
)

// MockCallHandler answers one request. A returned error becomes a gateway
// error response.
type MockCallHandler func(req *rpc.Request) (*rpc.Response, error)

var _ rpc.Dialer = (*MockDialer)(nil)

// MockDialer routes calls to per-method handlers without a network.
type MockDialer struct {
	mu        sync.Mutex
	handlers  map[rpc.Method]MockCallHandler
	calls     []rpc.Request
	connected bool
	dialErr   error
	eventCh   chan *rpc.Response
}

func NewMockDialer() *MockDialer {
	return &MockDialer{
		handlers: make(map[rpc.Method]MockCallHandler),
		eventCh:  make(chan *rpc.Response, 10),
	}
}

func (d *MockDialer) RegisterHandler(method rpc.Method, handler MockCallHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = handler
}

func (d *MockDialer) Dial(ctx context.Context, url string, handleClosure func(err error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dialErr != nil {
		return d.dialErr
	}
	d.connected = true
	return nil
}

func (d *MockDialer) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *MockDialer) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	if req == nil {
		return nil, rpc.ErrNilRequest
	}

	d.mu.Lock()
	d.calls = append(d.calls, *req)
	handler, ok := d.handlers[rpc.Method(req.Req.Method)]
	d.mu.Unlock()

	if !ok {
		res := rpc.NewErrorResponse(req.Req.RequestID, "method not found")
		return &res, nil
	}

	res, err := handler(req)
	if err != nil {
		errRes := rpc.NewErrorResponse(req.Req.RequestID, err.Error())
		return &errRes, nil
	}
	return res, nil
}

func (d *MockDialer) EventCh() <-chan *rpc.Response {
	return d.eventCh
}

// Calls returns the requests seen so far.
func (d *MockDialer) Calls() []rpc.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]rpc.Request(nil), d.calls...)
}

// respond builds a response for req with the given method and params.
func respond(req *rpc.Request, method rpc.Method, params any) (*rpc.Response, error) {
	p, err := rpc.NewParams(params)
	if err != nil {
		return nil, err
	}
	res := rpc.NewResponse(rpc.NewPayload(req.Req.RequestID, method.String(), p))
	return &res, nil
}
