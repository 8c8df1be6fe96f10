package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/sign"
)

// Client is a typed wrapper over a Dialer for the gateway methods. Every
// call returns the addresses that signed the response alongside the result.
//
//	dialer := rpc.NewWebsocketDialer(rpc.DefaultWebsocketDialerConfig)
//	client := rpc.NewClient(dialer)
//	if err := client.Start(ctx, "wss://gateway.example/ws", onClose); err != nil {
//	    return err
//	}
//	res, _, err := client.Handshake(ctx, rpc.HandshakeRequest{Network: "datil-dev"})
type Client struct {
	dialer Dialer
}

func NewClient(dialer Dialer) *Client {
	return &Client{dialer: dialer}
}

// Start dials url and drains unsolicited events until the connection ends.
// Cancelling ctx closes the connection.
func (c *Client) Start(ctx context.Context, url string, handleClosure func(err error)) error {
	connCtx, cancel := context.WithCancel(ctx)
	onClose := func(err error) {
		cancel()
		handleClosure(err)
	}

	if err := c.dialer.Dial(connCtx, url, onClose); err != nil {
		cancel()
		return err
	}

	go c.drainEvents(connCtx)
	return nil
}

// IsConnected reports whether the underlying dialer is connected.
func (c *Client) IsConnected() bool {
	return c.dialer.IsConnected()
}

func (c *Client) drainEvents(ctx context.Context) {
	lg := log.FromContext(ctx).WithName("rpc-client")
	events := c.dialer.EventCh()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok || event == nil {
				return
			}
			lg.Warn("ignoring unsolicited event", "method", event.Res.Method, "requestID", event.Res.RequestID)
		}
	}
}

func (c *Client) Handshake(ctx context.Context, reqParams HandshakeRequest) (HandshakeResponse, []sign.Address, error) {
	var resParams HandshakeResponse
	signers, err := c.callAndTranslate(ctx, HandshakeMethod, reqParams, &resParams)
	return resParams, signers, err
}

func (c *Client) SignSessionKey(ctx context.Context, reqParams SignSessionKeyRequest) (SignSessionKeyResponse, []sign.Address, error) {
	var resParams SignSessionKeyResponse
	signers, err := c.callAndTranslate(ctx, SignSessionKeyMethod, reqParams, &resParams)
	return resParams, signers, err
}

func (c *Client) PKPSign(ctx context.Context, reqParams PKPSignRequest) (PKPSignResponse, []sign.Address, error) {
	var resParams PKPSignResponse
	signers, err := c.callAndTranslate(ctx, PKPSignMethod, reqParams, &resParams)
	return resParams, signers, err
}

func (c *Client) callAndTranslate(ctx context.Context, method Method, reqParams, resParams any) ([]sign.Address, error) {
	res, err := c.call(ctx, method, reqParams)
	if err != nil {
		return nil, err
	}
	if err := res.Res.Params.Translate(resParams); err != nil {
		return nil, err
	}

	signers, err := res.GetSigners()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponseSignature, err)
	}
	return signers, nil
}

// call sends method and expects a response of the same name. Gateway error
// responses are returned as *Error.
func (c *Client) call(ctx context.Context, method Method, reqParams any) (*Response, error) {
	payload, err := c.PreparePayload(method, reqParams)
	if err != nil {
		return nil, err
	}

	req := NewRequest(payload)
	res, err := c.dialer.Call(ctx, &req)
	if err != nil {
		return nil, err
	}

	if err := res.Error(); err != nil {
		return nil, err
	}
	if res.Res.Method != method.String() {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrUnexpectedResponseMethod, method, res.Res.Method)
	}
	return res, nil
}

// PreparePayload builds a payload with a fresh request ID.
func (c *Client) PreparePayload(method Method, reqParams any) (Payload, error) {
	params, err := NewParams(reqParams)
	if err != nil {
		return Payload{}, err
	}
	return NewPayload(uint64(uuid.New().ID()), method.String(), params), nil
}
