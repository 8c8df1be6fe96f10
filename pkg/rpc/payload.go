package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// Payload is the body of a request or response. On the wire it is the
// compact array [RequestID, Method, Params, Timestamp].
type Payload struct {
	// RequestID pairs a response with its request.
	RequestID uint64 `json:"request_id"`
	// Method is the RPC method, e.g. "pkp_sign".
	Method string `json:"method"`
	// Params holds the method arguments or results.
	Params Params `json:"params"`
	// Timestamp is Unix milliseconds at creation.
	Timestamp uint64 `json:"ts"`
}

// NewPayload stamps the payload with the current time. A nil params
// becomes an empty object.
func NewPayload(id uint64, method string, params Params) Payload {
	if params == nil {
		params = Params{}
	}
	return Payload{
		RequestID: id,
		Method:    method,
		Params:    params,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
}

// Hash returns keccak256 of the compact JSON encoding. Gateway response
// signatures are made over this digest.
func (p Payload) Hash() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(data), nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.RequestID, p.Method, p.Params, p.Timestamp})
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error reading payload as array: %w", err)
	}
	if len(raw) != 4 {
		return errors.New("invalid payload: expected 4 elements in array")
	}

	if err := json.Unmarshal(raw[0], &p.RequestID); err != nil {
		return fmt.Errorf("invalid request_id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Method); err != nil {
		return fmt.Errorf("invalid method: %w", err)
	}
	if err := json.Unmarshal(raw[2], &p.Params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if err := json.Unmarshal(raw[3], &p.Timestamp); err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	return nil
}

// Params are method arguments kept as raw JSON until Translate decodes
// them into a typed struct.
type Params map[string]json.RawMessage

// NewParams converts any JSON object value into Params.
func NewParams(v any) (Params, error) {
	if v == nil {
		return Params{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error marshalling params: %w", err)
	}
	var params Params
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("error unmarshalling params: %w", err)
	}
	return params, nil
}

// Translate decodes the params into v, which must be a pointer.
func (p Params) Translate(v any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("error marshalling params: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error unmarshalling params: %w", err)
	}
	return nil
}

// Error returns the message stored under the "error" key, if any.
func (p Params) Error() error {
	raw, ok := p[errorParamKey]
	if !ok {
		return nil
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	return &Error{msg: msg}
}
