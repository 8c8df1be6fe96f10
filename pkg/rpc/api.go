package rpc

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/erc7824/aa-signers/pkg/sign"
)

// Method is the name of a gateway RPC method.
type Method string

func (m Method) String() string { return string(m) }

const (
	PingMethod  Method = "ping"
	PongMethod  Method = "pong"
	ErrorMethod Method = "error"

	// HandshakeMethod negotiates the network and returns the node set.
	HandshakeMethod Method = "handshake"
	// SignSessionKeyMethod exchanges auth-method material for a capability
	// signature issued by the PKP.
	SignSessionKeyMethod Method = "sign_session_key"
	// PKPSignMethod asks the network to sign a digest with the PKP, authorised
	// by session signatures.
	PKPSignMethod Method = "pkp_sign"
)

// NodeInfo describes one network node as reported by the gateway.
type NodeInfo struct {
	URL     string `json:"url"`
	Address string `json:"address"`
}

type HandshakeRequest struct {
	Network       string `json:"network"`
	ClientVersion string `json:"client_version,omitempty"`
}

type HandshakeResponse struct {
	Network         string     `json:"network"`
	Nodes           []NodeInfo `json:"nodes"`
	LatestBlockhash string     `json:"latest_blockhash,omitempty"`
}

// AuthMethod is raw identity proof: an access token and the numeric type of
// the provider that issued it.
type AuthMethod struct {
	AuthMethodType uint32 `json:"auth_method_type"`
	AccessToken    string `json:"access_token"`
}

// AuthSig is a signature object as exchanged with the network. Session
// signatures and wallet signatures share this shape.
type AuthSig struct {
	Sig           string `json:"sig"`
	DerivedVia    string `json:"derived_via"`
	SignedMessage string `json:"signed_message"`
	Address       string `json:"address"`
	Algo          string `json:"algo,omitempty"`
}

// ResourceAbilityRequest grants Ability on Resource ("*" for any).
type ResourceAbilityRequest struct {
	Resource string `json:"resource"`
	Ability  string `json:"ability"`
}

type SignSessionKeyRequest struct {
	// SessionKey is the hex session public key. Empty when the capability is
	// bound through AuthSig instead.
	SessionKey   string                   `json:"session_key,omitempty"`
	AuthMethods  []AuthMethod             `json:"auth_methods"`
	AuthSig      *AuthSig                 `json:"auth_sig,omitempty"`
	PKPPublicKey string                   `json:"pkp_public_key"`
	Expiration   string                   `json:"expiration"`
	Resources    []ResourceAbilityRequest `json:"resources"`
	URI          string                   `json:"uri"`
}

type SignSessionKeyResponse struct {
	AuthSig      AuthSig `json:"auth_sig"`
	PKPPublicKey string  `json:"pkp_public_key"`
}

type PKPSignRequest struct {
	ToSign      hexutil.Bytes      `json:"to_sign"`
	PubKey      string             `json:"pub_key"`
	SessionSigs map[string]AuthSig `json:"session_sigs"`
}

type PKPSignResponse struct {
	Signature sign.Signature `json:"signature"`
}
