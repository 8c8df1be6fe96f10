package rpc

import (
	"encoding/json"
	"fmt"
)

const errorParamKey = "error"

var (
	ErrAlreadyConnected  = fmt.Errorf("already connected")
	ErrNotConnected      = fmt.Errorf("not connected to server")
	ErrConnectionTimeout = fmt.Errorf("websocket connection timeout")
	ErrReadingMessage    = fmt.Errorf("error reading message")
	ErrDialingWebsocket  = fmt.Errorf("error dialing websocket server")

	ErrNilRequest               = fmt.Errorf("nil request")
	ErrMarshalingRequest        = fmt.Errorf("error marshaling request")
	ErrSendingRequest           = fmt.Errorf("error sending request")
	ErrNoResponse               = fmt.Errorf("no response received")
	ErrSendingPing              = fmt.Errorf("error sending ping")
	ErrUnexpectedResponseMethod = fmt.Errorf("unexpected response method")
	ErrInvalidResponseSignature = fmt.Errorf("invalid response signature")
)

// Error is an error reported by the gateway in an error response. Use
// errors.As to tell it apart from transport failures.
type Error struct {
	msg string
}

// Errorf builds an Error; test gateways use it to reply with a failure.
func Errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.msg }

// NewErrorParams returns {"error": errMsg}.
func NewErrorParams(errMsg string) Params {
	raw, _ := json.Marshal(errMsg)
	return Params{errorParamKey: raw}
}
