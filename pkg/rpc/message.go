package rpc

import (
	"github.com/erc7824/aa-signers/pkg/sign"
)

// Request is {"req": [id, method, params, ts], "sig": [...]}.
type Request struct {
	Req Payload          `json:"req"`
	Sig []sign.Signature `json:"sig"`
}

func NewRequest(payload Payload, sig ...sign.Signature) Request {
	return Request{Req: payload, Sig: sig}
}

// Response is {"res": [id, method, params, ts], "sig": [...]}. Gateways
// sign responses with their node keys.
type Response struct {
	Res Payload          `json:"res"`
	Sig []sign.Signature `json:"sig"`
}

func NewResponse(payload Payload, sig ...sign.Signature) Response {
	return Response{Res: payload, Sig: sig}
}

// GetSigners recovers the addresses behind Sig, in order.
func (r Response) GetSigners() ([]sign.Address, error) {
	hash, err := r.Res.Hash()
	if err != nil {
		return nil, err
	}

	addrs := make([]sign.Address, 0, len(r.Sig))
	for _, s := range r.Sig {
		addr, err := sign.RecoverAddressFromHash(hash, s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// NewErrorResponse builds an "error" response for requestID.
func NewErrorResponse(requestID uint64, errMsg string, sig ...sign.Signature) Response {
	return NewResponse(NewPayload(requestID, ErrorMethod.String(), NewErrorParams(errMsg)), sig...)
}

// Error returns the gateway error carried by an "error" response.
func (r Response) Error() error {
	if r.Res.Method != ErrorMethod.String() {
		return nil
	}
	return r.Res.Params.Error()
}
