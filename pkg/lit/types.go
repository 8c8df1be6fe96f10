package lit

import (
	"context"
	"time"

	"github.com/erc7824/aa-signers/pkg/rpc"
)

// Wire types shared with the gateway protocol.
type (
	AuthMethod             = rpc.AuthMethod
	AuthSig                = rpc.AuthSig
	ResourceAbilityRequest = rpc.ResourceAbilityRequest
	NodeInfo               = rpc.NodeInfo
)

// Network names.
const (
	NetworkDatilDev  = "datil-dev"
	NetworkDatilTest = "datil-test"
	NetworkDatil     = "datil"

	DefaultNetwork = NetworkDatilDev
)

// AuthMethodType identifies the provider behind an AuthMethod.
type AuthMethodType uint32

const (
	AuthMethodTypeEthWallet AuthMethodType = 1
	AuthMethodTypeLitAction AuthMethodType = 2
	AuthMethodTypeWebAuthn  AuthMethodType = 3
	AuthMethodTypeDiscord   AuthMethodType = 4
	AuthMethodTypeGoogle    AuthMethodType = 5
	AuthMethodTypeGoogleJwt AuthMethodType = 6
	AuthMethodTypeAppleJwt  AuthMethodType = 8
	AuthMethodTypeStytchOtp AuthMethodType = 9
)

func (t AuthMethodType) String() string {
	switch t {
	case AuthMethodTypeEthWallet:
		return "EthWallet"
	case AuthMethodTypeLitAction:
		return "LitAction"
	case AuthMethodTypeWebAuthn:
		return "WebAuthn"
	case AuthMethodTypeDiscord:
		return "Discord"
	case AuthMethodTypeGoogle:
		return "Google"
	case AuthMethodTypeGoogleJwt:
		return "GoogleJwt"
	case AuthMethodTypeAppleJwt:
		return "AppleJwt"
	case AuthMethodTypeStytchOtp:
		return "StytchOtp"
	default:
		return "Unknown"
	}
}

const (
	// AbilityPKPSigning lets a session sign with a PKP.
	AbilityPKPSigning = "pkp-signing"
	// ResourceAny matches every resource.
	ResourceAny = "*"

	DefaultChain = "ethereum"
	// DefaultSessionExpiration applies when GetSessionSigs gets no expiration.
	DefaultSessionExpiration = 24 * time.Hour
)

// SessionSigs maps a node URL to the session signature issued for it.
type SessionSigs map[string]AuthSig

// AuthCallbackParams is what GetSessionSigs hands to the AuthNeededCallback.
type AuthCallbackParams struct {
	Chain                   string
	Expiration              string
	ResourceAbilityRequests []ResourceAbilityRequest
	SessionKeyPair          SessionKeyPair
	// URI is the session URI of SessionKeyPair.
	URI string
}

// AuthNeededCallback produces the capability signature that authorises the
// session key, usually by calling SignSessionKey.
type AuthNeededCallback func(ctx context.Context, params AuthCallbackParams) (AuthSig, error)

type SessionSigsParams struct {
	// Chain defaults to DefaultChain.
	Chain string
	// Expiration is an RFC 3339 timestamp; defaults to now plus
	// DefaultSessionExpiration.
	Expiration              string
	ResourceAbilityRequests []ResourceAbilityRequest
	// SessionKey is generated when nil.
	SessionKey         *SessionKeyPair
	AuthNeededCallback AuthNeededCallback
}

type SignSessionKeyParams struct {
	// SessionKey is sent as its public key; nil omits it.
	SessionKey   *SessionKeyPair
	AuthMethods  []AuthMethod
	AuthSig      *AuthSig
	PKPPublicKey string
	Expiration   string
	Resources    []ResourceAbilityRequest
	// URI defaults to the session URI of SessionKey.
	URI string
}

type PKPSignParams struct {
	// ToSign is the 32-byte digest to sign.
	ToSign      []byte
	PubKey      string
	SessionSigs SessionSigs
}
