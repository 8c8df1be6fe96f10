// Package rpc is the transport to a key-management network gateway.
//
// Messages travel over a websocket as JSON. Requests and responses carry a
// compact payload array and optional signatures:
//
//	{"req": [request_id, method, params, timestamp], "sig": ["0x..."]}
//	{"res": [request_id, method, params, timestamp], "sig": ["0x..."]}
//
// A response reuses the request's ID. Gateway failures come back as an
// "error" response whose params hold {"error": "message"}; the Client turns
// those into *Error values. Responses that match no pending request are
// delivered on the dialer's event channel.
//
// Gateways sign the response payload (keccak256 of its compact JSON) with
// their node keys. The Client recovers those signers and returns them with
// every result; deciding which signers to trust is left to the caller.
//
// The gateway methods are:
//
//	ping              keepalive, answered with "pong"
//	handshake         network name in, node set out
//	sign_session_key  auth-method material in, capability AuthSig out
//	pkp_sign          digest and session signatures in, PKP signature out
package rpc
